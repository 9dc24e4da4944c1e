package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vpsvoucher/voucher-service/internal/config"
	"github.com/vpsvoucher/voucher-service/internal/extract"
	"github.com/vpsvoucher/voucher-service/internal/models"
	"github.com/vpsvoucher/voucher-service/internal/security"
	"github.com/vpsvoucher/voucher-service/internal/voucher"
)

var testJWT = config.JWTConfig{Secret: "admin-test-secret", ExpiryHours: 1}

func testClasses() map[string]config.DenominationClass {
	return map[string]config.DenominationClass{
		"10 5days":  {Amount: 10, ValidityDays: 5},
		"50 30days": {Amount: 50, ValidityDays: 30},
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:admin_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		t.Fatalf("sql db: %v", errDB)
	}
	sqlDB.SetMaxOpenConns(1)
	if errMigrate := conn.AutoMigrate(&models.User{}, &models.Voucher{}, &models.WebhookEvent{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func newTestEngine(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	uploader := voucher.NewUploader(db, extract.NewBatchTextExtractor(), testClasses())
	inventory := voucher.NewInventory(db, testClasses())
	engine := gin.New()
	RegisterAdminRoutes(engine, db, testJWT, uploader, inventory)
	return engine
}

func seedUser(t *testing.T, db *gorm.DB, email string, admin bool) *models.User {
	t.Helper()
	user := models.User{
		FullName: "Test User",
		Username: email,
		Email:    email,
		Password: "x",
		IsActive: true,
		IsAdmin:  admin,
	}
	if errCreate := db.Create(&user).Error; errCreate != nil {
		t.Fatalf("seed user: %v", errCreate)
	}
	return &user
}

func tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	token, errToken := security.GenerateToken(testJWT.Secret, user.ID, user.Username, user.Email, time.Hour)
	if errToken != nil {
		t.Fatalf("token: %v", errToken)
	}
	return token
}

func batchDocument(codes ...string) []byte {
	var buf bytes.Buffer
	for _, code := range codes {
		fmt.Fprintf(&buf, "Quota 2 GB %s Concurrent devices 1\n", code)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, token, class string, document []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if errField := writer.WriteField("voucher_type", class); errField != nil {
		t.Fatalf("write field: %v", errField)
	}
	part, errPart := writer.CreateFormFile("file", "batch.pdf")
	if errPart != nil {
		t.Fatalf("create part: %v", errPart)
	}
	if _, errWrite := part.Write(document); errWrite != nil {
		t.Fatalf("write part: %v", errWrite)
	}
	if errClose := writer.Close(); errClose != nil {
		t.Fatalf("close writer: %v", errClose)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/voucher/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestAdminRoutesRejectNonAdmins(t *testing.T) {
	db := openTestDB(t)
	engine := newTestEngine(t, db)
	user := seedUser(t, db, "plain@example.com", false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/voucher", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, user))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/voucher", nil)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", w.Code)
	}
}

func TestUploadBatch(t *testing.T) {
	db := openTestDB(t)
	engine := newTestEngine(t, db)
	admin := seedUser(t, db, "admin@example.com", true)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, uploadRequest(t, tokenFor(t, admin), "10 5days", batchDocument("abc123", "def456")))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var result struct {
		UploadedCount int `json:"uploaded_count"`
		FailedCount   int `json:"failed_count"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &result); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if result.UploadedCount != 2 || result.FailedCount != 0 {
		t.Fatalf("result = %+v", result)
	}

	// Re-uploading the same sheet only produces duplicates.
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, uploadRequest(t, tokenFor(t, admin), "10 5days", batchDocument("abc123", "def456")))
	if w.Code != http.StatusOK {
		t.Fatalf("re-upload status = %d", w.Code)
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &result); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if result.UploadedCount != 0 || result.FailedCount != 2 {
		t.Fatalf("re-upload result = %+v", result)
	}
}

func TestUploadRejectsUnknownClass(t *testing.T) {
	db := openTestDB(t)
	engine := newTestEngine(t, db)
	admin := seedUser(t, db, "admin@example.com", true)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, uploadRequest(t, tokenFor(t, admin), "99 1day", batchDocument("abc123")))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestUploadRejectsDocumentWithoutCodes(t *testing.T) {
	db := openTestDB(t)
	engine := newTestEngine(t, db)
	admin := seedUser(t, db, "admin@example.com", true)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, uploadRequest(t, tokenFor(t, admin), "10 5days", []byte("no codes here")))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreateVoucher(t *testing.T) {
	db := openTestDB(t)
	engine := newTestEngine(t, db)
	admin := seedUser(t, db, "admin@example.com", true)

	body, _ := json.Marshal(gin.H{"code": "xyz789", "voucher_type": "50 30days"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/voucher", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, admin))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/voucher", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, admin))
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409", w.Code)
	}
}

func TestListFiltersInventory(t *testing.T) {
	db := openTestDB(t)
	engine := newTestEngine(t, db)
	admin := seedUser(t, db, "admin@example.com", true)
	for i, amount := range []float64{10, 10, 50} {
		v := models.Voucher{Code: fmt.Sprintf("code%02d", i), Amount: amount, ValidityDays: 5}
		if errCreate := db.Create(&v).Error; errCreate != nil {
			t.Fatalf("seed voucher: %v", errCreate)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/voucher?amount=10&is_used=false", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, admin))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var listResp struct {
		Total int `json:"total"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &listResp); errDecode != nil || listResp.Total != 2 {
		t.Fatalf("list body = %s", w.Body.String())
	}
}

func TestPurgeUsedEndpoint(t *testing.T) {
	db := openTestDB(t)
	engine := newTestEngine(t, db)
	admin := seedUser(t, db, "admin@example.com", true)
	for i, isUsed := range []bool{true, false, true} {
		v := models.Voucher{Code: fmt.Sprintf("code%02d", i), Amount: 10, ValidityDays: 5, IsUsed: isUsed}
		if isUsed {
			v.UserID = &admin.ID
		}
		if errCreate := db.Create(&v).Error; errCreate != nil {
			t.Fatalf("seed voucher: %v", errCreate)
		}
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/voucher/used", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, admin))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var purgeResp struct {
		Deleted int64 `json:"deleted"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &purgeResp); errDecode != nil || purgeResp.Deleted != 2 {
		t.Fatalf("purge body = %s", w.Body.String())
	}

	var remaining int64
	if errCount := db.Model(&models.Voucher{}).Count(&remaining).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if remaining != 1 {
		t.Fatalf("remaining = %d, want 1", remaining)
	}
}

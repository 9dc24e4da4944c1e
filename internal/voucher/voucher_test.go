package voucher

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vpsvoucher/voucher-service/internal/config"
	"github.com/vpsvoucher/voucher-service/internal/models"
)

// openTestDB opens an isolated in-memory database. The pool is capped
// at one connection so concurrent transactions queue instead of
// tripping SQLite's single-writer limit.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:voucher_%d?mode=memory&cache=shared", time.Now().UnixNano())
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

func seedVoucher(t *testing.T, db *gorm.DB, code string, amount float64) *models.Voucher {
	t.Helper()
	v := models.Voucher{Code: code, Amount: amount, ValidityDays: 5}
	if errCreate := db.Create(&v).Error; errCreate != nil {
		t.Fatalf("seed voucher: %v", errCreate)
	}
	return &v
}

func countUnused(t *testing.T, db *gorm.DB, amount float64) int64 {
	t.Helper()
	var n int64
	if errCount := db.Model(&models.Voucher{}).
		Where("amount = ? AND is_used = ?", amount, false).
		Count(&n).Error; errCount != nil {
		t.Fatalf("count unused: %v", errCount)
	}
	return n
}

func testClasses() map[string]config.DenominationClass {
	return map[string]config.DenominationClass{
		"10 5days":  {Amount: 10, ValidityDays: 5},
		"20 10days": {Amount: 20, ValidityDays: 10},
		"50 30days": {Amount: 50, ValidityDays: 30},
	}
}

package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vpsvoucher/voucher-service/internal/models"
	"github.com/vpsvoucher/voucher-service/internal/voucher"
)

// maxUploadSize bounds uploaded batch documents.
const maxUploadSize = 16 << 20

// VoucherAdminHandler handles administrator inventory endpoints.
type VoucherAdminHandler struct {
	db        *gorm.DB
	uploader  *voucher.Uploader
	inventory *voucher.Inventory
}

// NewVoucherAdminHandler constructs a VoucherAdminHandler.
func NewVoucherAdminHandler(db *gorm.DB, uploader *voucher.Uploader, inventory *voucher.Inventory) *VoucherAdminHandler {
	return &VoucherAdminHandler{db: db, uploader: uploader, inventory: inventory}
}

// Upload imports a voucher batch document. The multipart form carries
// the document under "file" and the denomination class under
// "voucher_type".
func (h *VoucherAdminHandler) Upload(c *gin.Context) {
	admin, ok := currentAdmin(c, h.db)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	class := c.PostForm("voucher_type")
	if class == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "voucher_type is required"})
		return
	}

	fileHeader, errFile := c.FormFile("file")
	if errFile != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	file, errOpen := fileHeader.Open()
	if errOpen != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer func() { _ = file.Close() }()

	document, errRead := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if errRead != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}

	result, errUpload := h.uploader.Upload(c.Request.Context(), document, class, admin)
	if errUpload != nil {
		switch {
		case errors.Is(errUpload, voucher.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
		case errors.Is(errUpload, voucher.ErrUnsupportedDenominationClass):
			c.JSON(http.StatusBadRequest, gin.H{"error": errUpload.Error()})
		case errors.Is(errUpload, voucher.ErrExtractionFailed):
			c.JSON(http.StatusBadRequest, gin.H{"error": errUpload.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "process batch failed"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// adminVoucherDTO defines the inventory listing payload.
type adminVoucherDTO struct {
	ID           uint64     `json:"id"`
	Code         string     `json:"code"`
	Amount       float64    `json:"amount"`
	ValidityDays int        `json:"validity_days"`
	IsUsed       bool       `json:"is_used"`
	UserID       *uint64    `json:"user_id,omitempty"`
	Reference    *string    `json:"reference,omitempty"`
	PurchasedAt  *time.Time `json:"purchased_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// createRequest defines the request body for single voucher creation.
type createRequest struct {
	Code        string `json:"code"`
	VoucherType string `json:"voucher_type"`
}

// Create inserts a single unused voucher.
func (h *VoucherAdminHandler) Create(c *gin.Context) {
	var body createRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	created, errCreate := h.inventory.Create(c.Request.Context(), body.Code, body.VoucherType)
	if errCreate != nil {
		switch {
		case errors.Is(errCreate, voucher.ErrDuplicateCode):
			c.JSON(http.StatusConflict, gin.H{"error": errCreate.Error()})
		case errors.Is(errCreate, voucher.ErrUnsupportedDenominationClass):
			c.JSON(http.StatusBadRequest, gin.H{"error": errCreate.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": errCreate.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":            created.ID,
		"code":          created.Code,
		"amount":        created.Amount,
		"validity_days": created.ValidityDays,
	})
}

// List returns inventory, optionally filtered by amount and usage state.
func (h *VoucherAdminHandler) List(c *gin.Context) {
	query := h.db.WithContext(c.Request.Context()).Model(&models.Voucher{})

	if raw := c.Query("amount"); raw != "" {
		amount, errParse := strconv.ParseFloat(raw, 64)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount filter"})
			return
		}
		query = query.Where("amount = ?", amount)
	}
	if raw := c.Query("is_used"); raw != "" {
		used, errParse := strconv.ParseBool(raw)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid is_used filter"})
			return
		}
		query = query.Where("is_used = ?", used)
	}

	var vouchers []models.Voucher
	if errFind := query.Order("id ASC").Find(&vouchers).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query vouchers failed"})
		return
	}

	resp := make([]adminVoucherDTO, 0, len(vouchers))
	for _, item := range vouchers {
		resp = append(resp, adminVoucherDTO{
			ID:           item.ID,
			Code:         item.Code,
			Amount:       item.Amount,
			ValidityDays: item.ValidityDays,
			IsUsed:       item.IsUsed,
			UserID:       item.UserID,
			Reference:    item.Reference,
			PurchasedAt:  item.PurchasedAt,
			CreatedAt:    item.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"vouchers": resp, "total": len(resp)})
}

// PurgeUsed deletes all redeemed vouchers.
func (h *VoucherAdminHandler) PurgeUsed(c *gin.Context) {
	deleted, errPurge := h.inventory.PurgeUsed(c.Request.Context())
	if errPurge != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "purge failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// currentAdmin loads the authenticated administrator for the request.
func currentAdmin(c *gin.Context, db *gorm.DB) (*models.User, bool) {
	value, exists := c.Get("userID")
	if !exists {
		return nil, false
	}
	userID, ok := value.(uint64)
	if !ok || userID == 0 {
		return nil, false
	}
	var user models.User
	if errFind := db.WithContext(c.Request.Context()).First(&user, userID).Error; errFind != nil {
		return nil, false
	}
	return &user, true
}

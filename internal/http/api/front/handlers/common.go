package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vpsvoucher/voucher-service/internal/models"
)

// getUserID extracts the user ID from gin context.
func getUserID(c *gin.Context) uint64 {
	val, exists := c.Get("userID")
	if !exists {
		return 0
	}
	switch v := val.(type) {
	case uint64:
		return v
	case int64:
		return uint64(v)
	case uint:
		return uint64(v)
	case int:
		return uint64(v)
	default:
		return 0
	}
}

// currentUser loads the authenticated user for the request.
func currentUser(c *gin.Context, db *gorm.DB) (*models.User, bool) {
	userID := getUserID(c)
	if userID == 0 {
		return nil, false
	}
	var user models.User
	if errFind := db.WithContext(c.Request.Context()).First(&user, userID).Error; errFind != nil {
		return nil, false
	}
	return &user, true
}

// voucherDTO defines the voucher response payload.
type voucherDTO struct {
	ID           uint64     `json:"id"`
	Code         string     `json:"code"`
	Amount       float64    `json:"amount"`
	ValidityDays int        `json:"validity_days"`
	IsUsed       bool       `json:"is_used"`
	Reference    *string    `json:"reference,omitempty"`
	PurchasedAt  *time.Time `json:"purchased_at,omitempty"`
}

func toVoucherDTO(v *models.Voucher) voucherDTO {
	return voucherDTO{
		ID:           v.ID,
		Code:         v.Code,
		Amount:       v.Amount,
		ValidityDays: v.ValidityDays,
		IsUsed:       v.IsUsed,
		Reference:    v.Reference,
		PurchasedAt:  v.PurchasedAt,
	}
}

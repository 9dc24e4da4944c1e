package voucher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/vpsvoucher/voucher-service/internal/config"
	"github.com/vpsvoucher/voucher-service/internal/models"
)

// Inventory covers administrative inventory operations outside the
// purchase path: single-voucher creation and purging redeemed rows.
type Inventory struct {
	db      *gorm.DB
	classes map[string]config.DenominationClass
}

// NewInventory wires the inventory admin operations.
func NewInventory(db *gorm.DB, classes map[string]config.DenominationClass) *Inventory {
	return &Inventory{db: db, classes: classes}
}

// Create inserts a single unused voucher with the given code at the
// class's denomination and validity.
func (i *Inventory) Create(ctx context.Context, code, class string) (*models.Voucher, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("voucher code is required")
	}
	denomination, ok := i.classes[class]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDenominationClass, class)
	}

	var existing models.Voucher
	errFind := i.db.WithContext(ctx).Where("code = ?", code).First(&existing).Error
	if errFind == nil {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateCode, code)
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, errFind
	}

	created := models.Voucher{
		Code:         code,
		Amount:       denomination.Amount,
		ValidityDays: denomination.ValidityDays,
	}
	if errCreate := i.db.WithContext(ctx).Create(&created).Error; errCreate != nil {
		return nil, errCreate
	}
	return &created, nil
}

// PurgeUsed deletes all redeemed vouchers and returns the count.
// Unused inventory is never touched.
func (i *Inventory) PurgeUsed(ctx context.Context) (int64, error) {
	res := i.db.WithContext(ctx).Where("is_used = ?", true).Delete(&models.Voucher{})
	if res.Error != nil {
		return 0, res.Error
	}
	log.WithField("deleted", res.RowsAffected).Info("used vouchers purged")
	return res.RowsAffected, nil
}

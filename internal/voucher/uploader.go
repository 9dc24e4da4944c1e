package voucher

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/vpsvoucher/voucher-service/internal/config"
	"github.com/vpsvoucher/voucher-service/internal/extract"
	"github.com/vpsvoucher/voucher-service/internal/models"
)

// UploadResult summarizes a processed voucher batch.
type UploadResult struct {
	Message       string   `json:"message"`
	UploadedCount int      `json:"uploaded_count"`
	FailedCount   int      `json:"failed_count"`
	FailedCodes   []string `json:"failed_codes"`
}

// Uploader imports voucher batches extracted from scanned documents.
// Partial success is the designed behavior: codes already in inventory
// or failing insertion are counted and reported, never abort the batch.
type Uploader struct {
	db        *gorm.DB
	extractor extract.CodeExtractor
	classes   map[string]config.DenominationClass
}

// NewUploader wires the bulk uploader.
func NewUploader(db *gorm.DB, extractor extract.CodeExtractor, classes map[string]config.DenominationClass) *Uploader {
	return &Uploader{db: db, extractor: extractor, classes: classes}
}

// Upload extracts voucher codes from document and inserts them as
// unused inventory at the class's denomination and validity. Requires
// the administrator capability on admin. The batch commits once at the
// end; only a store-level outage aborts the whole call.
func (u *Uploader) Upload(ctx context.Context, document []byte, class string, admin *models.User) (*UploadResult, error) {
	if admin == nil || !admin.IsAdmin {
		return nil, ErrForbidden
	}

	denomination, ok := u.classes[class]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDenominationClass, class)
	}

	codes, errExtract := u.extractor.Extract(document)
	if errExtract != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, errExtract)
	}

	result := &UploadResult{FailedCodes: []string{}}
	errTx := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, code := range codes {
			var existing models.Voucher
			errFind := tx.Where("code = ?", code).First(&existing).Error
			if errFind == nil {
				log.WithField("code", code).Warn("duplicate voucher code skipped")
				result.FailedCount++
				result.FailedCodes = append(result.FailedCodes, code)
				continue
			}
			if !errors.Is(errFind, gorm.ErrRecordNotFound) {
				return errFind
			}

			// Savepoint per insert so one bad row cannot poison the batch.
			errInsert := tx.Transaction(func(inner *gorm.DB) error {
				return inner.Create(&models.Voucher{
					Code:         code,
					Amount:       denomination.Amount,
					ValidityDays: denomination.ValidityDays,
				}).Error
			})
			if errInsert != nil {
				log.WithError(errInsert).WithField("code", code).Error("voucher insert failed")
				result.FailedCount++
				result.FailedCodes = append(result.FailedCodes, code)
				continue
			}
			result.UploadedCount++
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}

	result.Message = fmt.Sprintf("Processed %d vouchers", result.UploadedCount+result.FailedCount)
	log.WithFields(log.Fields{
		"uploaded": result.UploadedCount,
		"failed":   result.FailedCount,
		"class":    class,
		"admin":    admin.Username,
	}).Info("voucher batch processed")
	return result, nil
}

package voucher

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbutil "github.com/vpsvoucher/voucher-service/internal/db"
	"github.com/vpsvoucher/voucher-service/internal/models"
)

// Allocator atomically binds unused vouchers to completed payments.
// The database transaction is the sole serialization point; no
// in-process locking is involved.
type Allocator struct {
	db *gorm.DB
}

// NewAllocator constructs an Allocator over the given connection.
func NewAllocator(db *gorm.DB) *Allocator {
	return &Allocator{db: db}
}

// Allocate claims one unused voucher of the given amount for userID and
// binds it to reference. Within a single transaction it first checks
// whether reference is already bound — a retried completion returns the
// previously claimed voucher unchanged — then locks the lowest-id
// unused candidate row, marks it used and commits. Returns
// ErrNoAvailableVoucher when the denomination is exhausted.
func (a *Allocator) Allocate(ctx context.Context, amount float64, userID uint64, reference string) (*models.Voucher, error) {
	var out models.Voucher

	errTx := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Voucher
		errFound := tx.Where("reference = ?", reference).First(&existing).Error
		if errFound == nil {
			out = existing
			return nil
		}
		if !errors.Is(errFound, gorm.ErrRecordNotFound) {
			return errFound
		}

		query := tx
		if !dbutil.IsSQLite(tx) {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var candidate models.Voucher
		if errFind := query.
			Where("amount = ? AND is_used = ?", amount, false).
			Order("id ASC").
			First(&candidate).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrNoAvailableVoucher
			}
			return errFind
		}

		now := time.Now().UTC()
		if errUpdate := tx.Model(&candidate).Updates(map[string]any{
			"is_used":      true,
			"user_id":      userID,
			"reference":    reference,
			"purchased_at": now,
		}).Error; errUpdate != nil {
			return errUpdate
		}

		candidate.IsUsed = true
		candidate.UserID = &userID
		candidate.Reference = &reference
		candidate.PurchasedAt = &now
		out = candidate
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}

	log.WithFields(log.Fields{
		"voucher": out.Code,
		"amount":  out.Amount,
		"user_id": userID,
	}).Info("voucher allocated")
	return &out, nil
}

// FindByReference returns the voucher bound to reference, if any.
func (a *Allocator) FindByReference(ctx context.Context, reference string) (*models.Voucher, error) {
	var v models.Voucher
	if errFind := a.db.WithContext(ctx).Where("reference = ?", reference).First(&v).Error; errFind != nil {
		return nil, errFind
	}
	return &v, nil
}

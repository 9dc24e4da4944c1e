package models

import "time"

// Voucher represents a prepaid access voucher. A voucher is created
// unused and claimed at most once: is_used, user_id, reference and
// purchased_at are bound together in a single commit and never reverted.
type Voucher struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Code         string  `gorm:"type:text;not null;uniqueIndex"`                        // Unique voucher code.
	Amount       float64 `gorm:"type:decimal(20,10);not null;index:idx_amount_unused"`  // Face value denomination.
	ValidityDays int     `gorm:"not null;default:0"`                                    // Validity window in days.

	IsUsed bool `gorm:"not null;default:false;index:idx_amount_unused"` // Whether the voucher has been claimed.

	UserID *uint64 `gorm:"index"`             // Claiming user, set on allocation.
	User   *User   `gorm:"foreignKey:UserID"` // Claiming user record.

	Reference *string `gorm:"type:text;uniqueIndex"` // Payment reference, unique once set.

	PurchasedAt *time.Time // Claim time, set on allocation.
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

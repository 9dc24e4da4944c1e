package models

import "time"

// User represents an account that can purchase vouchers.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	FullName string `gorm:"type:text;not null"`             // Display name.
	Username string `gorm:"type:text;not null"`             // Login name.
	Email    string `gorm:"type:text;not null;uniqueIndex"` // Unique contact and payment email.
	Password string `gorm:"type:text;not null"`             // Hashed password.

	IsActive bool `gorm:"not null;default:true"`  // Whether the account can sign in.
	IsAdmin  bool `gorm:"not null;default:false"` // Grants voucher administration.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

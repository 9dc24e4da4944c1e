package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/vpsvoucher/voucher-service/internal/models"
)

// Migrate creates or updates the schema for all persisted models.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	return conn.AutoMigrate(
		&models.User{},
		&models.Voucher{},
		&models.WebhookEvent{},
	)
}

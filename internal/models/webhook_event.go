package models

import (
	"time"

	"gorm.io/datatypes"
)

// Webhook event processing outcomes.
const (
	WebhookStatusReceived         = "received"          // Accepted, allocation pending.
	WebhookStatusProcessed        = "processed"         // Deferred allocation succeeded.
	WebhookStatusFailed           = "failed"            // Deferred allocation failed; Error holds the cause.
	WebhookStatusIgnored          = "ignored"           // Recognized but actionless event type.
	WebhookStatusInvalidSignature = "invalid_signature" // Signature mismatch; payload untrusted.
)

// WebhookEvent is the audit record for gateway webhook deliveries.
// Deferred allocation errors land here instead of the HTTP response.
type WebhookEvent struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	EventType string         `gorm:"type:text;not null"` // Gateway event name, e.g. charge.success.
	Reference string         `gorm:"type:text;index"`    // Payment reference, when present.
	Payload   datatypes.JSON `gorm:"type:jsonb"`         // Raw event payload for audit.
	Status    string         `gorm:"type:text;not null"` // One of the WebhookStatus constants.
	Error     string         `gorm:"type:text"`          // Failure detail, when Status is failed.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Delivery timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last status change.
}

package paystack

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// EventChargeSuccess is the webhook event emitted for completed charges.
const EventChargeSuccess = "charge.success"

// WebhookEvent is a parsed gateway webhook payload.
type WebhookEvent struct {
	Event string           `json:"event"`
	Data  WebhookEventData `json:"data"`
}

// WebhookEventData carries the charge details of a webhook event.
type WebhookEventData struct {
	Amount    int64           `json:"amount"` // Paid amount in minor units.
	Reference string          `json:"reference"`
	PaidAt    string          `json:"paid_at"`
	Customer  WebhookCustomer `json:"customer"`
}

// WebhookCustomer identifies the payer on a webhook event.
type WebhookCustomer struct {
	Email string `json:"email"`
}

// AmountMajor converts the minor-unit amount to major units.
func (d WebhookEventData) AmountMajor() float64 {
	return decimal.NewFromInt(d.Amount).Div(decimal.NewFromInt(100)).InexactFloat64()
}

// ParseWebhookEvent decodes a raw webhook body. The body is always
// treated as structured JSON data, never evaluated in any other way.
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if errUnmarshal := json.Unmarshal(body, &event); errUnmarshal != nil {
		return nil, fmt.Errorf("paystack: decode webhook payload: %w", errUnmarshal)
	}
	if strings.TrimSpace(event.Event) == "" {
		return nil, fmt.Errorf("paystack: webhook payload missing event type")
	}
	return &event, nil
}

package voucher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vpsvoucher/voucher-service/internal/config"
	"github.com/vpsvoucher/voucher-service/internal/models"
	"github.com/vpsvoucher/voucher-service/internal/paystack"
)

// Gateway is the payment-provider surface the purchase workflow needs.
type Gateway interface {
	InitializePayment(ctx context.Context, amount float64, email string) (*paystack.InitResponse, error)
	VerifyPayment(ctx context.Context, reference string) (*paystack.VerifyResult, error)
	VerifyWebhookSignature(body []byte, signature string) bool
}

// WebhookAck is the acknowledgement returned for every webhook
// delivery. Its shape never varies with the verification outcome.
type WebhookAck struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Service sequences the purchase workflow: initiate payment, wait for
// the completion signal (client poll or gateway webhook), allocate a
// voucher. No purchase state is persisted; state is reconstructed from
// the gateway's status plus voucher-binding lookups.
type Service struct {
	db         *gorm.DB
	gateway    Gateway
	allocator  *Allocator
	dispatcher *Dispatcher
	vouchers   config.VoucherConfig
}

// NewService wires the purchase workflow.
func NewService(db *gorm.DB, gateway Gateway, allocator *Allocator, dispatcher *Dispatcher, vouchers config.VoucherConfig) *Service {
	return &Service{
		db:         db,
		gateway:    gateway,
		allocator:  allocator,
		dispatcher: dispatcher,
		vouchers:   vouchers,
	}
}

// Initiate starts a hosted checkout for user. Amounts outside the
// allowed denomination set are rejected before any gateway call; no
// voucher is touched here.
func (s *Service) Initiate(ctx context.Context, amount float64, user *models.User) (*paystack.InitResponse, error) {
	if !s.vouchers.AllowsAmount(amount) {
		log.WithFields(log.Fields{"amount": amount, "user": user.Username}).Warn("invalid purchase amount")
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	return s.gateway.InitializePayment(ctx, amount, user.Email)
}

// Complete verifies reference with the gateway and, on success,
// allocates a voucher of the verified amount to user. Retries are safe:
// allocation is idempotent per reference.
func (s *Service) Complete(ctx context.Context, reference string, user *models.User) (*models.Voucher, error) {
	result, errVerify := s.gateway.VerifyPayment(ctx, reference)
	if errVerify != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentNotVerified, errVerify)
	}
	return s.allocator.Allocate(ctx, result.Amount, user.ID, reference)
}

// HandleWebhook processes a gateway webhook delivery. Signature
// mismatches are acknowledged exactly like valid deliveries — the
// outcome is recorded for operators, never revealed to the caller.
// Recognized charge events are allocated asynchronously; the
// acknowledgement does not wait for allocation.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) (*WebhookAck, error) {
	ack := &WebhookAck{Status: "success", Message: "Event received"}

	if !s.gateway.VerifyWebhookSignature(body, signature) {
		log.Warn("webhook signature mismatch")
		s.recordEvent(ctx, &models.WebhookEvent{
			EventType: "unknown",
			Payload:   payloadJSON(body),
			Status:    models.WebhookStatusInvalidSignature,
		})
		return ack, nil
	}

	event, errParse := paystack.ParseWebhookEvent(body)
	if errParse != nil {
		log.WithError(errParse).Error("webhook payload unparseable")
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhookPayload, errParse)
	}

	if event.Event != paystack.EventChargeSuccess {
		log.WithField("event", event.Event).Info("webhook event ignored")
		s.recordEvent(ctx, &models.WebhookEvent{
			EventType: event.Event,
			Reference: event.Data.Reference,
			Payload:   payloadJSON(body),
			Status:    models.WebhookStatusIgnored,
		})
		return ack, nil
	}

	record := &models.WebhookEvent{
		EventType: event.Event,
		Reference: event.Data.Reference,
		Payload:   payloadJSON(body),
		Status:    models.WebhookStatusReceived,
	}
	s.recordEvent(ctx, record)

	email := strings.TrimSpace(event.Data.Customer.Email)
	var payer models.User
	if errFind := s.db.WithContext(ctx).Where("email = ?", email).First(&payer).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			log.WithField("email", email).Warn("webhook payer unknown")
			s.failEvent(ctx, record.ID, "no user for payer email")
			return ack, nil
		}
		log.WithError(errFind).Error("webhook payer lookup failed")
		s.failEvent(ctx, record.ID, errFind.Error())
		return ack, nil
	}

	if !s.dispatcher.Enqueue(record.ID, event.Data.AmountMajor(), payer.ID, event.Data.Reference) {
		log.WithField("reference", event.Data.Reference).Error("webhook allocation queue full")
		s.failEvent(ctx, record.ID, "allocation queue full")
	}
	return ack, nil
}

// recordEvent persists a webhook audit row; failures are logged only,
// so auditing never changes the acknowledgement.
func (s *Service) recordEvent(ctx context.Context, event *models.WebhookEvent) {
	if errCreate := s.db.WithContext(ctx).Create(event).Error; errCreate != nil {
		log.WithError(errCreate).Error("record webhook event failed")
	}
}

func (s *Service) failEvent(ctx context.Context, eventID uint64, detail string) {
	if eventID == 0 {
		return
	}
	if errUpdate := s.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("id = ?", eventID).
		Updates(map[string]any{"status": models.WebhookStatusFailed, "error": detail}).Error; errUpdate != nil {
		log.WithError(errUpdate).WithField("event_id", eventID).Error("update webhook event failed")
	}
}

// payloadJSON keeps the raw body for audit when it is valid JSON; audit
// columns never store bytes that the database would reject.
func payloadJSON(body []byte) datatypes.JSON {
	if json.Valid(body) {
		return datatypes.JSON(body)
	}
	return nil
}

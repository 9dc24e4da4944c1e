package voucher

import "errors"

// Sentinel errors surfaced by the voucher workflow. Handlers map each
// to a distinct HTTP status so operators can alert on inventory
// exhaustion separately from bugs.
var (
	// ErrInvalidAmount rejects purchase amounts outside the allowed
	// denomination set, before any gateway call is made.
	ErrInvalidAmount = errors.New("invalid voucher amount")
	// ErrPaymentNotVerified indicates the gateway did not report success
	// for the reference.
	ErrPaymentNotVerified = errors.New("payment not verified")
	// ErrNoAvailableVoucher indicates inventory is exhausted for the
	// requested denomination.
	ErrNoAvailableVoucher = errors.New("no available voucher")
	// ErrInvalidWebhookPayload indicates a webhook body that is not
	// valid structured data.
	ErrInvalidWebhookPayload = errors.New("invalid webhook payload")
	// ErrForbidden rejects administrator-only operations for non-admins.
	ErrForbidden = errors.New("admin access required")
	// ErrUnsupportedDenominationClass rejects upload classes outside the
	// configured amount/validity pairs.
	ErrUnsupportedDenominationClass = errors.New("unsupported denomination class")
	// ErrExtractionFailed indicates the batch document was unreadable or
	// contained no codes.
	ErrExtractionFailed = errors.New("voucher code extraction failed")
	// ErrDuplicateCode rejects a voucher code already in inventory.
	ErrDuplicateCode = errors.New("voucher code already exists")
)

package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vpsvoucher/voucher-service/internal/config"
)

// Currency is the only settlement currency the gateway account accepts.
const Currency = "GHS"

// maxResponseSize bounds gateway response bodies.
const maxResponseSize = 1 << 20

// GatewayError reports a failed or unverifiable gateway interaction.
type GatewayError struct {
	Op         string // Gateway operation, "initialize" or "verify".
	StatusCode int    // HTTP status when the gateway answered, 0 otherwise.
	Err        error  // Underlying transport or decode error, if any.
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("paystack: %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("paystack: %s failed with status %d", e.Op, e.StatusCode)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// InitResponse is the hosted-checkout handle returned by payment initialization.
type InitResponse struct {
	PaymentURL string  `json:"payment_url"`
	AccessCode string  `json:"access_code"`
	Status     bool    `json:"status"`
	Amount     float64 `json:"amount"`
}

// VerifyResult is the verified outcome of a payment reference.
type VerifyResult struct {
	Amount        float64         // Paid amount in major units.
	Status        string          // Gateway-reported status, "success" when verified.
	Reference     string          // The verified payment reference.
	CustomerEmail string          // Payer email on record at the gateway.
	Raw           json.RawMessage // Full gateway detail for audit.
}

// Client wraps the Paystack transaction API. The shared secret is
// injected at construction and never read from process-global state.
type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a gateway client from configuration.
func NewClient(cfg config.PaystackConfig) *Client {
	return &Client{
		secretKey: cfg.SecretKey,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

type initAPIResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// InitializePayment starts a hosted checkout for the given amount and
// payer email. The amount is converted to the gateway's minor units
// with decimal arithmetic before transmission.
func (c *Client) InitializePayment(ctx context.Context, amount float64, email string) (*InitResponse, error) {
	minor := decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	payload, errMarshal := json.Marshal(map[string]any{
		"amount":   minor,
		"email":    email,
		"currency": Currency,
	})
	if errMarshal != nil {
		return nil, &GatewayError{Op: "initialize", Err: errMarshal}
	}

	body, status, errCall := c.call(ctx, http.MethodPost, c.baseURL+"/initialize", payload)
	if errCall != nil {
		log.WithError(errCall).Error("payment initialization failed")
		return nil, &GatewayError{Op: "initialize", Err: errCall}
	}
	if status != http.StatusOK {
		log.WithField("status", status).Error("payment initialization failed")
		return nil, &GatewayError{Op: "initialize", StatusCode: status}
	}

	var decoded initAPIResponse
	if errDecode := json.Unmarshal(body, &decoded); errDecode != nil {
		return nil, &GatewayError{Op: "initialize", Err: errDecode}
	}

	log.WithFields(log.Fields{
		"access_code": decoded.Data.AccessCode,
		"status":      decoded.Status,
	}).Info("payment initialized")

	return &InitResponse{
		PaymentURL: decoded.Data.AuthorizationURL,
		AccessCode: decoded.Data.AccessCode,
		Status:     decoded.Status,
		Amount:     amount,
	}, nil
}

type verifyAPIResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Amount    int64  `json:"amount"`
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Customer  struct {
			Email string `json:"email"`
		} `json:"customer"`
	} `json:"data"`
}

// VerifyPayment checks a payment reference against the gateway. It is
// idempotent and succeeds only when the gateway reports an explicit
// success status for the reference.
func (c *Client) VerifyPayment(ctx context.Context, reference string) (*VerifyResult, error) {
	body, status, errCall := c.call(ctx, http.MethodGet, c.baseURL+"/verify/"+reference, nil)
	if errCall != nil {
		log.WithError(errCall).WithField("reference", reference).Error("payment verification failed")
		return nil, &GatewayError{Op: "verify", Err: errCall}
	}
	if status != http.StatusOK {
		log.WithFields(log.Fields{"reference": reference, "status": status}).Error("payment verification failed")
		return nil, &GatewayError{Op: "verify", StatusCode: status}
	}

	var decoded verifyAPIResponse
	if errDecode := json.Unmarshal(body, &decoded); errDecode != nil {
		return nil, &GatewayError{Op: "verify", Err: errDecode}
	}
	if decoded.Data.Status != "success" {
		log.WithFields(log.Fields{"reference": reference, "gateway_status": decoded.Data.Status}).Warn("payment not successful")
		return nil, &GatewayError{Op: "verify", StatusCode: status, Err: fmt.Errorf("gateway status %q", decoded.Data.Status)}
	}

	amount := decimal.NewFromInt(decoded.Data.Amount).Div(decimal.NewFromInt(100))
	return &VerifyResult{
		Amount:        amount.InexactFloat64(),
		Status:        decoded.Data.Status,
		Reference:     decoded.Data.Reference,
		CustomerEmail: decoded.Data.Customer.Email,
		Raw:           json.RawMessage(body),
	}, nil
}

// VerifyWebhookSignature reports whether signature matches the
// HMAC-SHA512 of the exact raw body under the shared secret. The
// comparison is constant-time; a mismatch is a normal outcome, never an
// error that could leak timing information.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(c.secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

// call performs one outbound gateway request and returns the body and status.
func (c *Client) call(ctx context.Context, method, url string, payload []byte) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, errReq := http.NewRequestWithContext(ctx, method, url, reader)
	if errReq != nil {
		return nil, 0, errReq
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, errDo := c.httpClient.Do(req)
	if errDo != nil {
		return nil, 0, errDo
	}
	defer func() { _ = resp.Body.Close() }()

	body, errRead := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if errRead != nil {
		return nil, resp.StatusCode, errRead
	}
	return body, resp.StatusCode, nil
}

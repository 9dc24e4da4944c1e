package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vpsvoucher/voucher-service/internal/models"
	"github.com/vpsvoucher/voucher-service/internal/paystack"
	"github.com/vpsvoucher/voucher-service/internal/voucher"
)

// maxWebhookBody bounds webhook request bodies.
const maxWebhookBody = 64 << 10

// VoucherHandler handles voucher purchase and lookup endpoints.
type VoucherHandler struct {
	db  *gorm.DB
	svc *voucher.Service
}

// NewVoucherHandler constructs a VoucherHandler.
func NewVoucherHandler(db *gorm.DB, svc *voucher.Service) *VoucherHandler {
	return &VoucherHandler{db: db, svc: svc}
}

// buyRequest defines the request body for purchase initiation.
type buyRequest struct {
	Amount float64 `json:"amount"`
}

// Buy starts a hosted checkout for the requested denomination.
func (h *VoucherHandler) Buy(c *gin.Context) {
	user, ok := currentUser(c, h.db)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body buyRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	resp, errInitiate := h.svc.Initiate(c.Request.Context(), body.Amount, user)
	if errInitiate != nil {
		if errors.Is(errInitiate, voucher.ErrInvalidAmount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInitiate.Error()})
			return
		}
		var gatewayErr *paystack.GatewayError
		if errors.As(errInitiate, &gatewayErr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment initialization failed"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payment initialization failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment_url": resp.PaymentURL,
		"access_code": resp.AccessCode,
		"amount":      resp.Amount,
	})
}

// Complete verifies a payment reference and claims a voucher for it.
func (h *VoucherHandler) Complete(c *gin.Context) {
	user, ok := currentUser(c, h.db)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	reference := c.Param("reference")
	if reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reference is required"})
		return
	}

	claimed, errComplete := h.svc.Complete(c.Request.Context(), reference, user)
	if errComplete != nil {
		switch {
		case errors.Is(errComplete, voucher.ErrPaymentNotVerified):
			c.JSON(http.StatusBadRequest, gin.H{"error": "payment not verified"})
		case errors.Is(errComplete, voucher.ErrNoAvailableVoucher):
			c.JSON(http.StatusNotFound, gin.H{"error": "no voucher available for this denomination"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "complete purchase failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"voucher": toVoucherDTO(claimed)})
}

// Webhook accepts gateway event deliveries. The acknowledgement shape
// never varies with the verification outcome; only a malformed body is
// an error.
func (h *VoucherHandler) Webhook(c *gin.Context) {
	body, errRead := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if errRead != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	ack, errHandle := h.svc.HandleWebhook(c.Request.Context(), body, c.GetHeader("x-paystack-signature"))
	if errHandle != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	c.JSON(http.StatusOK, ack)
}

// Mine lists the vouchers allocated to the current user.
func (h *VoucherHandler) Mine(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var vouchers []models.Voucher
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("purchased_at DESC").
		Find(&vouchers).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query vouchers failed"})
		return
	}

	resp := make([]voucherDTO, 0, len(vouchers))
	for i := range vouchers {
		resp = append(resp, toVoucherDTO(&vouchers[i]))
	}
	c.JSON(http.StatusOK, gin.H{"vouchers": resp})
}

// Get returns one of the current user's vouchers by id.
func (h *VoucherHandler) Get(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	voucherID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid voucher id"})
		return
	}

	var found models.Voucher
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", voucherID, userID).
		First(&found).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "voucher not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query voucher failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"voucher": toVoucherDTO(&found)})
}

// GetByReference returns the current user's voucher bound to a payment
// reference. Clients poll this after checkout when they miss the
// completion response.
func (h *VoucherHandler) GetByReference(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	reference := c.Param("reference")
	var found models.Voucher
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("reference = ? AND user_id = ?", reference, userID).
		First(&found).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "voucher not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query voucher failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"voucher": toVoucherDTO(&found)})
}

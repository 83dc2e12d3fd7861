package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"hotel-booking-backend/internal/apperr"
	"hotel-booking-backend/internal/gateway"
	"hotel-booking-backend/internal/model"
	"hotel-booking-backend/internal/mw"
	"hotel-booking-backend/internal/parse"
	"hotel-booking-backend/internal/payment"
)

// SignatureHeader carries the HMAC of a gateway webhook body.
const SignatureHeader = "Chapa-Signature"

type initializePaymentRequest struct {
	BookingNumber string `json:"booking_number" binding:"required"`
}

// InitializeChapaPayment handles POST /api/v1/payments/chapa/initialize.
func (h *Handler) InitializeChapaPayment(c *gin.Context) {
	var req initializePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	b, err := h.store.Bookings().FindByNumber(c.Request.Context(), req.BookingNumber)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ownerOnly(mw.ActorFrom(c), b) {
		writeError(c, apperr.New(apperr.ErrForbidden, "only the guest who made booking %s can pay for it", b.BookingNumber))
		return
	}

	checkout, err := h.reconciler.InitializePayment(c.Request.Context(), b.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment initialized successfully", "data": checkout})
}

type webhookRequest struct {
	TxRef     string `json:"tx_ref"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	Reference string `json:"reference"`
}

// ChapaWebhook handles POST /api/v1/payments/chapa/webhook. No actor is
// required; when a webhook secret is configured the body must carry a
// valid signature.
func (h *Handler) ChapaWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		badRequest(c, "invalid request")
		return
	}
	if h.webhookSecret != "" && !gateway.ValidSignature(h.webhookSecret, body, c.GetHeader(SignatureHeader)) {
		log.Printf("Rejected webhook with invalid signature from %s", c.ClientIP())
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var req webhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	outcome, err := h.reconciler.HandleWebhook(c.Request.Context(), payment.WebhookPayload{
		TxRef:     req.TxRef,
		Status:    req.Status,
		Message:   req.Message,
		Reference: req.Reference,
		Raw:       json.RawMessage(body),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Webhook processed successfully", "outcome": outcome})
}

type verifyPaymentRequest struct {
	TransactionID string `json:"transaction_id" binding:"required"`
}

// VerifyPayment handles POST /api/v1/payments/verify.
func (h *Handler) VerifyPayment(c *gin.Context) {
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ctx := c.Request.Context()

	p, err := h.store.Payments().FindByTransactionID(ctx, req.TransactionID)
	if err != nil {
		writeError(c, err)
		return
	}
	b, err := h.store.Bookings().FindByID(ctx, p.BookingID)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ownerOrStaff(mw.ActorFrom(c), b) {
		writeError(c, apperr.New(apperr.ErrForbidden, "you are not allowed to access payment %s", p.TransactionID))
		return
	}

	verified, err := h.reconciler.VerifyPayment(ctx, req.TransactionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment verified", "data": verified})
}

type createPaymentRequest struct {
	Method string `json:"method" binding:"required,oneof=cash card bank_transfer"`
}

// CreateBookingPayment handles POST /api/v1/bookings/:number/payments. Staff
// open a manual payment for the booking total and settle it later with
// MarkCashPaid.
func (h *Handler) CreateBookingPayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	b, ok := h.bookingFor(c, anyActor)
	if !ok {
		return
	}
	p, err := h.reconciler.CreatePayment(c.Request.Context(), b.ID, model.Channel(req.Method))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// MarkCashPaid handles PUT /api/v1/payments/:id/mark-cash-paid.
func (h *Handler) MarkCashPaid(c *gin.Context) {
	id, err := parse.ID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid payment id")
		return
	}
	p, err := h.reconciler.MarkCashPayment(c.Request.Context(), id, mw.ActorFrom(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment marked as paid successfully", "data": p})
}

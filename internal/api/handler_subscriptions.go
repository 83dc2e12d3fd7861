package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hotel-booking-backend/internal/apperr"
	"hotel-booking-backend/internal/model"
	"hotel-booking-backend/internal/mw"
)

type putSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required,url"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
}

// PutSubscription handles the creation or replacement of the caller's push
// subscription. Booking and payment notifications for the caller are sent
// to every endpoint they registered.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	subscription := model.PushSubscription{
		Endpoint: req.Endpoint,
		UserID:   mw.ActorFrom(c).UserID,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
	}
	if err := h.store.Subscriptions().Upsert(c.Request.Context(), &subscription); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription handles the deletion of a subscription.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if _, ok := h.ownSubscription(c, req.Endpoint); !ok {
		return
	}
	if err := h.store.Subscriptions().Delete(c.Request.Context(), req.Endpoint); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetSubscription handles the retrieval of a subscription.
func (h *Handler) GetSubscription(c *gin.Context) {
	endpoint := c.Query("endpoint")
	if endpoint == "" {
		badRequest(c, "endpoint is required")
		return
	}

	sub, ok := h.ownSubscription(c, endpoint)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"endpoint": sub.Endpoint, "created_at": sub.CreatedAt})
}

// ownSubscription loads a subscription registered by the caller. Another
// user's endpoint is reported as missing.
func (h *Handler) ownSubscription(c *gin.Context, endpoint string) (*model.PushSubscription, bool) {
	sub, err := h.store.Subscriptions().Find(c.Request.Context(), endpoint)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	if sub.UserID != mw.ActorFrom(c).UserID {
		writeError(c, apperr.NotFound("subscription"))
		return nil, false
	}
	return sub, true
}

// GetVAPIDPublicKey returns the key browsers need to create a subscription.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push notifications are not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"public_key": h.webpush.VAPIDPublicKey})
}

package api

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"hotel-booking-backend/config"
	"hotel-booking-backend/internal/apperr"
	"hotel-booking-backend/internal/availability"
	"hotel-booking-backend/internal/booking"
	"hotel-booking-backend/internal/payment"
	"hotel-booking-backend/internal/store"
)

// Services are the dependencies the handlers call into.
type Services struct {
	Store       store.Store
	Oracle      *availability.Oracle
	Coordinator *booking.Coordinator
	Reconciler  *payment.Reconciler
	WebPush     *webpush.Options
	Booking     config.BookingConfig
	// WebhookSecret enables signature checks on gateway webhooks when set.
	WebhookSecret string
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store         store.Store
	oracle        *availability.Oracle
	coordinator   *booking.Coordinator
	reconciler    *payment.Reconciler
	webpush       *webpush.Options
	booking       config.BookingConfig
	webhookSecret string
}

// NewHandler creates a new API handler.
func NewHandler(s Services) *Handler {
	return &Handler{
		store:         s.Store,
		oracle:        s.Oracle,
		coordinator:   s.Coordinator,
		reconciler:    s.Reconciler,
		webpush:       s.WebPush,
		booking:       s.Booking,
		webhookSecret: s.WebhookSecret,
	}
}

// writeError maps an error kind to its HTTP status. Errors without a kind
// are logged and answered with a generic 500.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, apperr.ErrInvalidTransition):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, apperr.ErrUpstream):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": apperr.Message(err)})
}

// bindError answers a failed ShouldBind. Rule violations are 422 with one
// message per field; anything else is a malformed request.
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fieldMessage(fe)
		}
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": fields})
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "notpast":
		return "must be today or later"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "email":
		return "must be a valid email address"
	}
	return "is invalid (" + fe.Tag() + ")"
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

type pageMeta struct {
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
}

func pageFromQuery(c *gin.Context) store.Page {
	number, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("per_page"))
	return store.Page{Number: number, Size: size}.Normalize()
}

func newPageMeta(page store.Page, total int64) pageMeta {
	last := int(math.Ceil(float64(total) / float64(page.Size)))
	if last < 1 {
		last = 1
	}
	return pageMeta{CurrentPage: page.Number, LastPage: last, PerPage: page.Size, Total: total}
}

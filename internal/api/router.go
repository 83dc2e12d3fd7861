package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"hotel-booking-backend/config"
	"hotel-booking-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg config.ServerConfig, logger *log.Logger) *gin.Engine {
	registerValidators()

	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLog(logger), mw.Identify())

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	// Catalogue and search responses are cached per request URI. Booking and
	// payment routes are never cached.
	cacheStore := cache.New(cfg.CacheTTL(), 2*cfg.CacheTTL())
	caching := mw.Cache(cacheStore, cfg.CacheTTL(), mw.PublicKey)

	staff := mw.RequireRoles(mw.StaffRoles...)
	user := mw.RequireUser()

	v1 := r.Group("/api/v1")
	v1.Use(rateLimiter)
	{
		v1.GET("/hotels", caching, h.ListHotels)
		v1.GET("/hotels/:id", caching, h.GetHotel)

		v1.GET("/rooms", caching, h.ListRoomTypes)
		v1.GET("/rooms/search", caching, h.SearchRooms)
		v1.GET("/rooms/:id", caching, h.GetRoomType)
		v1.POST("/rooms/search", h.SearchRooms)
		v1.GET("/rooms/:id/unavailable-dates", h.GetUnavailableDates)
		v1.POST("/rooms/:id/calendar/provision", staff, h.ProvisionCalendar)
		v1.PUT("/calendar/status", staff, h.BulkSetCalendarStatus)

		v1.POST("/bookings", user, h.CreateBooking)
		v1.GET("/bookings", user, h.ListBookings)
		v1.GET("/bookings/:number", user, h.GetBooking)
		v1.PUT("/bookings/:number/cancel", user, h.CancelBooking)
		v1.PUT("/bookings/:number/check-in", staff, h.CheckIn)
		v1.PUT("/bookings/:number/check-out", staff, h.CheckOut)
		v1.POST("/bookings/:number/payments", staff, h.CreateBookingPayment)

		v1.POST("/payments/chapa/initialize", user, h.InitializeChapaPayment)
		v1.POST("/payments/chapa/webhook", h.ChapaWebhook)
		v1.POST("/payments/verify", user, h.VerifyPayment)
		v1.PUT("/payments/:id/mark-cash-paid", staff, h.MarkCashPaid)

		v1.GET("/subscriptions", user, h.GetSubscription)
		v1.PUT("/subscriptions", user, h.PutSubscription)
		v1.DELETE("/subscriptions", user, h.DeleteSubscription)
		v1.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}

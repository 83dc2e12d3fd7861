package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hotel-booking-backend/internal/apperr"
	"hotel-booking-backend/internal/booking"
	"hotel-booking-backend/internal/model"
	"hotel-booking-backend/internal/mw"
	"hotel-booking-backend/internal/parse"
	"hotel-booking-backend/internal/store"
)

type guestRequest struct {
	FirstName string `json:"first_name" binding:"required,max=128"`
	LastName  string `json:"last_name" binding:"required,max=128"`
	Email     string `json:"email" binding:"omitempty,email,max=255"`
	Phone     string `json:"phone" binding:"omitempty,max=32"`
	GuestType string `json:"guest_type" binding:"omitempty,oneof=adult child"`
	IsPrimary bool   `json:"is_primary"`
}

type createBookingRequest struct {
	HotelID          int64          `json:"hotel_id" binding:"required,gt=0"`
	RoomTypeID       int64          `json:"room_type_id" binding:"required,gt=0"`
	CheckInDate      string         `json:"check_in_date" binding:"required,notpast"`
	CheckOutDate     string         `json:"check_out_date" binding:"required"`
	NumberOfAdults   int            `json:"number_of_adults" binding:"required,min=1,max=10"`
	NumberOfChildren int            `json:"number_of_children" binding:"min=0,max=10"`
	PaymentMethod    string         `json:"payment_method" binding:"required,oneof=pay_now pay_at_hotel"`
	SpecialRequests  string         `json:"special_requests" binding:"max=1000"`
	Guests           []guestRequest `json:"guests" binding:"required,min=1,dive"`
}

// CreateBooking handles POST /api/v1/bookings.
func (h *Handler) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	checkIn, checkOut, err := parse.Stay(req.CheckInDate, req.CheckOutDate)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	guests := make([]booking.GuestInput, len(req.Guests))
	for i, g := range req.Guests {
		guests[i] = booking.GuestInput{
			FirstName: g.FirstName,
			LastName:  g.LastName,
			Email:     g.Email,
			Phone:     g.Phone,
			GuestType: model.GuestType(g.GuestType),
			IsPrimary: g.IsPrimary,
		}
	}

	created, err := h.coordinator.CreateBooking(c.Request.Context(), booking.CreateRequest{
		UserID:          mw.ActorFrom(c).UserID,
		HotelID:         req.HotelID,
		RoomTypeID:      req.RoomTypeID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Adults:          req.NumberOfAdults,
		Children:        req.NumberOfChildren,
		PaymentMethod:   model.PaymentMethod(req.PaymentMethod),
		SpecialRequests: req.SpecialRequests,
		Guests:          guests,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ListBookings handles GET /api/v1/bookings. Staff may filter across all
// bookings; everyone else only sees their own.
func (h *Handler) ListBookings(c *gin.Context) {
	actor := mw.ActorFrom(c)
	filter := store.BookingFilter{Page: pageFromQuery(c)}

	if actor.IsStaff() {
		filter.Status = model.BookingStatus(c.Query("status"))
		filter.Search = c.Query("search")
		if raw := c.Query("hotel_id"); raw != "" {
			hotelID, err := parse.ID(raw)
			if err != nil {
				badRequest(c, "invalid hotel_id")
				return
			}
			filter.HotelID = &hotelID
		}
		if raw := c.Query("check_in_date"); raw != "" {
			d, err := parse.Date(raw)
			if err != nil {
				badRequest(c, err.Error())
				return
			}
			filter.CheckInDate = &d
		}
	} else {
		filter.UserID = &actor.UserID
	}

	bookings, total, err := h.store.Bookings().List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}
	c.JSON(http.StatusOK, gin.H{"data": bookings, "meta": newPageMeta(filter.Page, total)})
}

// bookingFor loads the booking named in the path and checks that the actor
// may act on it. On failure the response is already written.
func (h *Handler) bookingFor(c *gin.Context, allowed func(mw.Actor, *model.Booking) bool) (*model.Booking, bool) {
	b, err := h.store.Bookings().FindByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	if !allowed(mw.ActorFrom(c), b) {
		writeError(c, apperr.New(apperr.ErrForbidden, "you are not allowed to access booking %s", b.BookingNumber))
		return nil, false
	}
	return b, true
}

func ownerOrStaff(a mw.Actor, b *model.Booking) bool {
	return a.Authenticated() && (a.UserID == b.UserID || a.IsStaff())
}

func ownerOrAdmin(a mw.Actor, b *model.Booking) bool {
	return a.Authenticated() && (a.UserID == b.UserID || a.IsAdmin())
}

func ownerOnly(a mw.Actor, b *model.Booking) bool {
	return a.Authenticated() && a.UserID == b.UserID
}

func anyActor(mw.Actor, *model.Booking) bool { return true }

// GetBooking handles GET /api/v1/bookings/:number.
func (h *Handler) GetBooking(c *gin.Context) {
	b, ok := h.bookingFor(c, ownerOrStaff)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, b)
}

type cancelBookingRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// CancelBooking handles PUT /api/v1/bookings/:number/cancel.
func (h *Handler) CancelBooking(c *gin.Context) {
	var req cancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}
	b, ok := h.bookingFor(c, ownerOrAdmin)
	if !ok {
		return
	}
	if req.Reason == "" {
		req.Reason = "Cancelled by user"
	}

	cancelled, err := h.coordinator.CancelBooking(c.Request.Context(), b.ID, mw.ActorFrom(c).UserID, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cancelled)
}

// CheckIn handles PUT /api/v1/bookings/:number/check-in.
func (h *Handler) CheckIn(c *gin.Context) {
	b, ok := h.bookingFor(c, anyActor)
	if !ok {
		return
	}
	updated, err := h.coordinator.CheckIn(c.Request.Context(), b.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// CheckOut handles PUT /api/v1/bookings/:number/check-out.
func (h *Handler) CheckOut(c *gin.Context) {
	b, ok := h.bookingFor(c, anyActor)
	if !ok {
		return
	}
	updated, err := h.coordinator.CheckOut(c.Request.Context(), b.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hotel-booking-backend/internal/model"
	"hotel-booking-backend/internal/parse"
)

// ListHotels handles GET /api/v1/hotels.
func (h *Handler) ListHotels(c *gin.Context) {
	page := pageFromQuery(c)
	hotels, total, err := h.store.Hotels().List(c.Request.Context(), page)
	if err != nil {
		writeError(c, err)
		return
	}
	if hotels == nil {
		hotels = []model.Hotel{}
	}
	c.JSON(http.StatusOK, gin.H{"data": hotels, "meta": newPageMeta(page, total)})
}

// GetHotel handles GET /api/v1/hotels/:id.
func (h *Handler) GetHotel(c *gin.Context) {
	id, err := parse.ID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid hotel id")
		return
	}
	hotel, err := h.store.Hotels().FindByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, hotel)
}

// ListRoomTypes handles GET /api/v1/rooms.
func (h *Handler) ListRoomTypes(c *gin.Context) {
	page := pageFromQuery(c)
	roomTypes, total, err := h.store.Hotels().ListRoomTypes(c.Request.Context(), page)
	if err != nil {
		writeError(c, err)
		return
	}
	if roomTypes == nil {
		roomTypes = []model.RoomType{}
	}
	c.JSON(http.StatusOK, gin.H{"data": roomTypes, "meta": newPageMeta(page, total)})
}

// GetRoomType handles GET /api/v1/rooms/:id.
func (h *Handler) GetRoomType(c *gin.Context) {
	id, err := parse.ID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid room type id")
		return
	}
	rt, err := h.store.Hotels().FindRoomType(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rt})
}

// GetUnavailableDates handles GET /api/v1/rooms/:id/unavailable-dates.
func (h *Handler) GetUnavailableDates(c *gin.Context) {
	roomID, err := parse.ID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid room id")
		return
	}
	months := h.booking.UnavailableMonths
	if raw := c.Query("months"); raw != "" {
		months, err = strconv.Atoi(raw)
		if err != nil || months < 1 || months > 24 {
			badRequest(c, "months must be between 1 and 24")
			return
		}
	}

	dates, err := h.oracle.UnavailableDates(c.Request.Context(), roomID, months)
	if err != nil {
		writeError(c, err)
		return
	}
	formatted := make([]string, len(dates))
	for i, d := range dates {
		formatted[i] = d.Format(parse.DateLayout)
	}
	c.JSON(http.StatusOK, gin.H{"room_id": roomID, "unavailable_dates": formatted})
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hotel-booking-backend/internal/model"
	"hotel-booking-backend/internal/parse"
)

type provisionRequest struct {
	Months int `json:"months" binding:"omitempty,min=1,max=36"`
}

// ProvisionCalendar handles POST /api/v1/rooms/:id/calendar/provision. Nights
// that already exist are left untouched.
func (h *Handler) ProvisionCalendar(c *gin.Context) {
	roomID, err := parse.ID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid room id")
		return
	}
	var req provisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}
	if req.Months == 0 {
		req.Months = h.booking.CalendarHorizonMonths
	}

	created, err := h.oracle.InitializeRoomCalendar(c.Request.Context(), roomID, req.Months)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room_id": roomID, "months": req.Months, "created": created})
}

type bulkStatusRequest struct {
	RoomIDs []int64 `json:"room_ids" binding:"required,min=1,dive,gt=0"`
	Date    string  `json:"date" binding:"required"`
	Status  string  `json:"status" binding:"required,oneof=available booked blocked"`
}

// BulkSetCalendarStatus handles PUT /api/v1/calendar/status.
func (h *Handler) BulkSetCalendarStatus(c *gin.Context) {
	var req bulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	date, err := parse.Date(req.Date)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	status := model.CalendarStatus(req.Status)
	if err := h.store.Calendar().BulkSetStatus(c.Request.Context(), req.RoomIDs, date, status); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room_ids": req.RoomIDs, "date": date.Format(parse.DateLayout), "status": status})
}

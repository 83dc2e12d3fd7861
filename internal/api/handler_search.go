package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hotel-booking-backend/internal/availability"
	"hotel-booking-backend/internal/parse"
)

type searchRequest struct {
	HotelID      int64    `json:"hotel_id" form:"hotel_id" binding:"required,gt=0"`
	CheckInDate  string   `json:"check_in_date" form:"check_in_date" binding:"required,notpast"`
	CheckOutDate string   `json:"check_out_date" form:"check_out_date" binding:"required"`
	RoomTypeID   *int64   `json:"room_type_id" form:"room_type_id" binding:"omitempty,gt=0"`
	Adults       int      `json:"adults" form:"adults" binding:"omitempty,min=1,max=10"`
	Children     int      `json:"children" form:"children" binding:"omitempty,min=0,max=10"`
	MinPrice     *float64 `json:"min_price" form:"min_price" binding:"omitempty,gte=0"`
	MaxPrice     *float64 `json:"max_price" form:"max_price" binding:"omitempty,gte=0"`
	Amenities    []int64  `json:"amenities" form:"-"`
}

type searchResponse struct {
	CheckInDate  string                              `json:"check_in_date"`
	CheckOutDate string                              `json:"check_out_date"`
	Results      []availability.RoomTypeAvailability `json:"results"`
}

// SearchRooms handles POST /api/v1/rooms/search (JSON body) and
// GET /api/v1/rooms/search (query string).
func (h *Handler) SearchRooms(c *gin.Context) {
	var req searchRequest
	if c.Request.Method == http.MethodGet {
		if err := c.ShouldBindQuery(&req); err != nil {
			bindError(c, err)
			return
		}
		amenities, err := parse.IDList(append(c.QueryArray("amenities"), c.QueryArray("amenities[]")...))
		if err != nil {
			badRequest(c, "invalid amenities")
			return
		}
		req.Amenities = amenities
	} else if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	checkIn, checkOut, err := parse.Stay(req.CheckInDate, req.CheckOutDate)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.MinPrice != nil && req.MaxPrice != nil && *req.MaxPrice <= *req.MinPrice {
		badRequest(c, "max_price must be greater than min_price")
		return
	}
	if req.Adults == 0 {
		req.Adults = 1
	}

	results, err := h.oracle.SearchAvailableRooms(c.Request.Context(), availability.Criteria{
		HotelID:    req.HotelID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		RoomTypeID: req.RoomTypeID,
		Adults:     req.Adults,
		Children:   req.Children,
		MinPrice:   req.MinPrice,
		MaxPrice:   req.MaxPrice,
		Amenities:  req.Amenities,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if results == nil {
		results = []availability.RoomTypeAvailability{}
	}
	c.JSON(http.StatusOK, searchResponse{
		CheckInDate:  checkIn.Format(parse.DateLayout),
		CheckOutDate: checkOut.Format(parse.DateLayout),
		Results:      results,
	})
}

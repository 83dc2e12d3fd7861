// Package availability answers which rooms can be sold for a stay and at
// what price. It reads both bookings and the calendar ledger and treats a
// room as unavailable if either says so.
package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"hotel-booking-backend/internal/model"
	"hotel-booking-backend/internal/store"
)

// Oracle evaluates availability and pricing against a Store.
type Oracle struct {
	store store.Store
	now   func() time.Time
}

// NewOracle creates an Oracle reading from s.
func NewOracle(s store.Store) *Oracle {
	return &Oracle{store: s, now: time.Now}
}

// WithStore returns a copy of the Oracle reading from s, typically a
// transaction-bound Store.
func (o *Oracle) WithStore(s store.Store) *Oracle {
	cp := *o
	cp.store = s
	return &cp
}

// WithClock returns a copy of the Oracle using now as "today".
func (o *Oracle) WithClock(now func() time.Time) *Oracle {
	cp := *o
	cp.now = now
	return &cp
}

// GetAvailableRooms lists the hotel's sellable rooms with no live booking
// overlapping [checkIn, checkOut) and no blocked night inside it, in id order.
func (o *Oracle) GetAvailableRooms(ctx context.Context, hotelID int64, checkIn, checkOut time.Time, roomTypeID *int64) ([]model.Room, error) {
	rooms, err := o.store.Rooms().ListBookable(ctx, store.RoomQuery{HotelID: hotelID, RoomTypeID: roomTypeID})
	if err != nil {
		return nil, err
	}
	if len(rooms) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(rooms))
	for i, r := range rooms {
		ids[i] = r.ID
	}
	booked, err := o.store.Bookings().OverlappingRoomIDs(ctx, ids, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	blocked, err := o.store.Calendar().BlockedRoomIDs(ctx, ids, checkIn, checkOut)
	if err != nil {
		return nil, err
	}

	available := make([]model.Room, 0, len(rooms))
	for _, r := range rooms {
		if booked[r.ID] || blocked[r.ID] {
			continue
		}
		if r.RoomType == nil || !r.RoomType.IsActive {
			continue
		}
		available = append(available, r)
	}
	return available, nil
}

// CheckAvailability is the single-room form of GetAvailableRooms used to
// re-check a room right before it is reserved. Booked nights in the calendar
// count as taken as well as blocked ones.
func (o *Oracle) CheckAvailability(ctx context.Context, roomID int64, checkIn, checkOut time.Time) (bool, error) {
	taken, err := o.store.Bookings().OverlappingRoomIDs(ctx, []int64{roomID}, checkIn, checkOut)
	if err != nil {
		return false, err
	}
	if taken[roomID] {
		return false, nil
	}
	return o.store.Calendar().IsRangeFree(ctx, roomID, checkIn, checkOut)
}

// CalculatePrice returns the nightly price of the room type for the stay:
// the highest priority active rate rule covering the whole stay, or the base
// price when none does.
func (o *Oracle) CalculatePrice(ctx context.Context, rt *model.RoomType, checkIn, checkOut time.Time) (float64, error) {
	rules, err := o.store.RateRules().ActiveCovering(ctx, rt.ID, checkIn, checkOut)
	if err != nil {
		return 0, err
	}
	if len(rules) > 0 {
		return rules[0].Price, nil
	}
	return rt.BasePrice, nil
}

// Criteria describes an availability search. Zero or nil optional fields do
// not filter.
type Criteria struct {
	HotelID    int64
	CheckIn    time.Time
	CheckOut   time.Time
	RoomTypeID *int64
	Adults     int
	Children   int
	MinPrice   *float64
	MaxPrice   *float64
	Amenities  []int64
}

// RoomTypeAvailability is one search hit: a room type with at least one free room.
type RoomTypeAvailability struct {
	RoomType       *model.RoomType `json:"room_type"`
	AvailableRooms int             `json:"available_rooms"`
	PricePerNight  float64         `json:"price_per_night"`
	Nights         int             `json:"nights"`
	TotalPrice     float64         `json:"total_price"`
}

// SearchAvailableRooms groups the available rooms by room type, prices each
// type for the stay and applies the optional filters. Types without a free
// room are left out. Results are ordered by room type id.
func (o *Oracle) SearchAvailableRooms(ctx context.Context, c Criteria) ([]RoomTypeAvailability, error) {
	rooms, err := o.GetAvailableRooms(ctx, c.HotelID, c.CheckIn, c.CheckOut, c.RoomTypeID)
	if err != nil {
		return nil, err
	}

	byType := make(map[int64]*RoomTypeAvailability)
	for _, r := range rooms {
		hit, ok := byType[r.RoomTypeID]
		if !ok {
			hit = &RoomTypeAvailability{RoomType: r.RoomType}
			byType[r.RoomTypeID] = hit
		}
		hit.AvailableRooms++
	}

	nights := model.Nights(c.CheckIn, c.CheckOut)
	results := make([]RoomTypeAvailability, 0, len(byType))
	for _, hit := range byType {
		price, err := o.CalculatePrice(ctx, hit.RoomType, c.CheckIn, c.CheckOut)
		if err != nil {
			return nil, err
		}
		hit.PricePerNight = price
		hit.Nights = nights
		hit.TotalPrice = model.RoundMoney(price * float64(nights))

		if c.matches(hit) {
			results = append(results, *hit)
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].RoomType.ID < results[j].RoomType.ID })
	return results, nil
}

func (c Criteria) matches(hit *RoomTypeAvailability) bool {
	rt := hit.RoomType
	if c.Adults > 0 && rt.MaxAdults < c.Adults {
		return false
	}
	if c.Children > 0 && rt.MaxChildren < c.Children {
		return false
	}
	if c.MinPrice != nil && hit.TotalPrice < *c.MinPrice {
		return false
	}
	if c.MaxPrice != nil && hit.TotalPrice > *c.MaxPrice {
		return false
	}
	return rt.HasAnyAmenity(c.Amenities)
}

// UnavailableDates lists the booked or blocked nights of a room from today
// through the next months months.
func (o *Oracle) UnavailableDates(ctx context.Context, roomID int64, months int) ([]time.Time, error) {
	if _, err := o.store.Rooms().FindByID(ctx, roomID); err != nil {
		return nil, err
	}
	from := model.Day(o.now())
	return o.store.Calendar().UnavailableDates(ctx, roomID, from, from.AddDate(0, months, 0))
}

// InitializeRoomCalendar provisions available nights for the room from today
// over the next months months. Existing nights keep their status. It returns
// the number of nights added.
func (o *Oracle) InitializeRoomCalendar(ctx context.Context, roomID int64, months int) (int64, error) {
	if months <= 0 {
		return 0, fmt.Errorf("calendar horizon must be positive, got %d months", months)
	}
	if _, err := o.store.Rooms().FindByID(ctx, roomID); err != nil {
		return 0, err
	}
	from := model.Day(o.now())
	return o.store.Calendar().Provision(ctx, roomID, from, from.AddDate(0, months, 0))
}

// Package booking implements the reservation lifecycle: creating a booking
// atomically with its calendar hold, and the guarded status transitions that
// follow it.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"hotel-booking-backend/internal/apperr"
	"hotel-booking-backend/internal/availability"
	"hotel-booking-backend/internal/event"
	"hotel-booking-backend/internal/idgen"
	"hotel-booking-backend/internal/model"
	"hotel-booking-backend/internal/store"
)

// ExpiryReason is recorded on bookings cancelled by the expiry sweep.
const ExpiryReason = "Expired - Payment not received"

const maxNumberAttempts = 10

// Options carries the reservation rules and the clock.
type Options struct {
	ExpiryWindow time.Duration
	TaxRate      float64
	Now          func() time.Time
}

// Coordinator runs booking creation and state changes, each in one transaction.
type Coordinator struct {
	store     store.Store
	oracle    *availability.Oracle
	publisher event.Publisher
	ids       idgen.Generator
	opts      Options
}

// NewCoordinator creates a Coordinator. Unset options fall back to a
// 15 minute expiry window, a 15% tax rate and the wall clock.
func NewCoordinator(s store.Store, oracle *availability.Oracle, publisher event.Publisher, ids idgen.Generator, opts Options) *Coordinator {
	if opts.ExpiryWindow <= 0 {
		opts.ExpiryWindow = 15 * time.Minute
	}
	if opts.TaxRate <= 0 {
		opts.TaxRate = 0.15
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if publisher == nil {
		publisher = event.Discard
	}
	return &Coordinator{store: s, oracle: oracle, publisher: publisher, ids: ids, opts: opts}
}

// GuestInput is one guest listed on a new booking.
type GuestInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	GuestType model.GuestType
	IsPrimary bool
}

// CreateRequest is a validated booking request.
type CreateRequest struct {
	UserID          int64
	HotelID         int64
	RoomTypeID      int64
	CheckIn         time.Time
	CheckOut        time.Time
	Adults          int
	Children        int
	PaymentMethod   model.PaymentMethod
	SpecialRequests string
	Guests          []GuestInput
}

// Quote is the price breakdown of a stay.
type Quote struct {
	Nights        int
	PricePerNight float64
	Subtotal      float64
	TaxAmount     float64
	TotalAmount   float64
}

// NewQuote prices a stay. The total is rounded once from the unrounded
// product so it always equals round(price * nights * (1 + taxRate), 2).
func NewQuote(pricePerNight float64, nights int, taxRate float64) Quote {
	raw := pricePerNight * float64(nights)
	subtotal := model.RoundMoney(raw)
	total := model.RoundMoney(raw * (1 + taxRate))
	return Quote{
		Nights:        nights,
		PricePerNight: pricePerNight,
		Subtotal:      subtotal,
		TaxAmount:     model.RoundMoney(total - subtotal),
		TotalAmount:   total,
	}
}

// CreateBooking picks the first available room of the requested type,
// re-checks it under lock, and writes the booking, its guests and the
// calendar hold in one transaction. BookingCreated is published only after
// the commit.
func (c *Coordinator) CreateBooking(ctx context.Context, req CreateRequest) (*model.Booking, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	checkIn, checkOut := model.Day(req.CheckIn), model.Day(req.CheckOut)
	now := c.opts.Now()

	var created *model.Booking
	err := c.store.Transaction(ctx, func(tx store.Store) error {
		oracle := c.oracle.WithStore(tx)

		rooms, err := oracle.GetAvailableRooms(ctx, req.HotelID, checkIn, checkOut, &req.RoomTypeID)
		if err != nil {
			return err
		}
		if len(rooms) == 0 {
			return apperr.New(apperr.ErrConflict, "no rooms of this type are available for the selected dates")
		}
		room := rooms[0]

		if _, err := tx.Rooms().LockByID(ctx, room.ID); err != nil {
			return err
		}
		free, err := oracle.CheckAvailability(ctx, room.ID, checkIn, checkOut)
		if err != nil {
			return err
		}
		if !free {
			return apperr.New(apperr.ErrConflict, "room %s is no longer available, please search again", room.RoomNumber)
		}

		price, err := oracle.CalculatePrice(ctx, room.RoomType, checkIn, checkOut)
		if err != nil {
			return err
		}
		quote := NewQuote(price, model.Nights(checkIn, checkOut), c.opts.TaxRate)

		number, err := c.uniqueNumber(ctx, tx)
		if err != nil {
			return err
		}

		b := &model.Booking{
			BookingNumber:    number,
			UserID:           req.UserID,
			HotelID:          req.HotelID,
			RoomID:           room.ID,
			RoomTypeID:       room.RoomTypeID,
			CheckInDate:      checkIn,
			CheckOutDate:     checkOut,
			NumberOfAdults:   req.Adults,
			NumberOfChildren: req.Children,
			NumberOfNights:   quote.Nights,
			PricePerNight:    quote.PricePerNight,
			Subtotal:         quote.Subtotal,
			TaxAmount:        quote.TaxAmount,
			TotalAmount:      quote.TotalAmount,
			Status:           model.BookingConfirmed,
			PaymentMethod:    req.PaymentMethod,
			SpecialRequests:  req.SpecialRequests,
			Guests:           guests(req.Guests),
		}
		if req.PaymentMethod == model.PayNow {
			expires := now.Add(c.opts.ExpiryWindow)
			b.Status = model.BookingPending
			b.ExpiresAt = &expires
		}

		if err := tx.Bookings().Create(ctx, b); err != nil {
			return err
		}
		if err := tx.Calendar().Reserve(ctx, room.ID, checkIn, checkOut); err != nil {
			return err
		}
		if err := tx.Rooms().UpdateStatus(ctx, room.ID, model.RoomOccupied); err != nil {
			return err
		}

		created, err = tx.Bookings().FindByID(ctx, b.ID)
		return err
	})
	if err != nil {
		// Includes overlaps rejected by the exclusion constraint on postgres.
		if errors.Is(err, apperr.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	log.Printf("Booking %s created for room %d (%s to %s, %s)",
		created.BookingNumber, created.RoomID,
		checkIn.Format(time.DateOnly), checkOut.Format(time.DateOnly), created.Status)
	c.publisher.Publish(ctx, event.Event{Kind: event.BookingCreated, Booking: created, OccurredAt: now})
	return created, nil
}

func (c *Coordinator) uniqueNumber(ctx context.Context, tx store.Store) (string, error) {
	for i := 0; i < maxNumberAttempts; i++ {
		number := c.ids.BookingNumber()
		exists, err := tx.Bookings().NumberExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
	}
	return "", fmt.Errorf("could not find an unused booking number after %d attempts", maxNumberAttempts)
}

func (r CreateRequest) validate() error {
	var problems []string
	if r.UserID <= 0 {
		problems = append(problems, "user is required")
	}
	if !model.Day(r.CheckOut).After(model.Day(r.CheckIn)) {
		problems = append(problems, "check-out must be after check-in")
	}
	if r.Adults < 1 {
		problems = append(problems, "at least one adult is required")
	}
	if r.Children < 0 {
		problems = append(problems, "children cannot be negative")
	}
	if !r.PaymentMethod.Valid() {
		problems = append(problems, fmt.Sprintf("unknown payment method %q", r.PaymentMethod))
	}
	if len(problems) > 0 {
		return apperr.New(apperr.ErrValidation, "%s", strings.Join(problems, "; "))
	}
	return nil
}

func guests(in []GuestInput) []model.BookingGuest {
	out := make([]model.BookingGuest, len(in))
	for i, g := range in {
		gt := g.GuestType
		if gt == "" {
			gt = model.GuestAdult
		}
		out[i] = model.BookingGuest{
			FirstName: g.FirstName,
			LastName:  g.LastName,
			Email:     g.Email,
			Phone:     g.Phone,
			GuestType: gt,
			IsPrimary: g.IsPrimary,
		}
	}
	return out
}

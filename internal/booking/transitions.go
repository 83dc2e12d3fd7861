package booking

import (
	"context"
	"log"

	"hotel-booking-backend/internal/apperr"
	"hotel-booking-backend/internal/model"
	"hotel-booking-backend/internal/store"
)

// Statuses a booking can be cancelled from by a guest or staff member.
var cancellable = []model.BookingStatus{model.BookingPending, model.BookingConfirmed, model.BookingCheckedIn}

// CancelBooking cancels a booking and releases its calendar nights. actorID 0
// records a system cancellation. The room is made available again unless the
// guest had already checked in.
func (c *Coordinator) CancelBooking(ctx context.Context, id, actorID int64, reason string) (*model.Booking, error) {
	var actor *int64
	if actorID > 0 {
		actor = &actorID
	}
	return c.cancel(ctx, id, cancellable, actor, reason)
}

func (c *Coordinator) cancel(ctx context.Context, id int64, allowed []model.BookingStatus, actor *int64, reason string) (*model.Booking, error) {
	var cancelled *model.Booking
	err := c.store.Transaction(ctx, func(tx store.Store) error {
		b, err := tx.Bookings().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if b.Status == model.BookingCancelled {
			return apperr.New(apperr.ErrConflict, "booking %s is already cancelled", b.BookingNumber)
		}
		if !statusIn(b.Status, allowed) {
			return apperr.New(apperr.ErrInvalidTransition, "booking %s cannot be cancelled while %s", b.BookingNumber, b.Status)
		}

		if err := tx.Calendar().Release(ctx, b.RoomID, b.CheckInDate, b.CheckOutDate); err != nil {
			return err
		}
		if b.Status != model.BookingCheckedIn {
			if err := tx.Rooms().UpdateStatus(ctx, b.RoomID, model.RoomAvailable); err != nil {
				return err
			}
		}

		now := c.opts.Now()
		ok, err := tx.Bookings().Transition(ctx, b.ID, []model.BookingStatus{b.Status}, model.BookingCancelled, map[string]any{
			"cancelled_at":        &now,
			"cancelled_by":        actor,
			"cancellation_reason": reason,
		})
		if err != nil {
			return err
		}
		if !ok {
			return apperr.New(apperr.ErrConflict, "booking %s was changed concurrently", b.BookingNumber)
		}

		cancelled, err = tx.Bookings().FindByID(ctx, b.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Booking %s cancelled: %s", cancelled.BookingNumber, reason)
	return cancelled, nil
}

// CheckIn moves a confirmed booking to checked_in and marks its room occupied.
func (c *Coordinator) CheckIn(ctx context.Context, id int64) (*model.Booking, error) {
	return c.advance(ctx, id, model.BookingConfirmed, model.BookingCheckedIn, "checked_in_at", model.RoomOccupied)
}

// CheckOut moves a checked_in booking to checked_out and frees its room.
func (c *Coordinator) CheckOut(ctx context.Context, id int64) (*model.Booking, error) {
	return c.advance(ctx, id, model.BookingCheckedIn, model.BookingCheckedOut, "checked_out_at", model.RoomAvailable)
}

func (c *Coordinator) advance(ctx context.Context, id int64, from, to model.BookingStatus, stampColumn string, roomStatus model.RoomStatus) (*model.Booking, error) {
	var updated *model.Booking
	err := c.store.Transaction(ctx, func(tx store.Store) error {
		b, err := tx.Bookings().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if b.Status != from {
			return apperr.New(apperr.ErrInvalidTransition, "booking %s is %s, expected %s", b.BookingNumber, b.Status, from)
		}

		now := c.opts.Now()
		ok, err := tx.Bookings().Transition(ctx, b.ID, []model.BookingStatus{from}, to, map[string]any{stampColumn: &now})
		if err != nil {
			return err
		}
		if !ok {
			return apperr.New(apperr.ErrConflict, "booking %s was changed concurrently", b.BookingNumber)
		}
		if err := tx.Rooms().UpdateStatus(ctx, b.RoomID, roomStatus); err != nil {
			return err
		}

		updated, err = tx.Bookings().FindByID(ctx, b.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Booking %s moved from %s to %s", updated.BookingNumber, from, to)
	return updated, nil
}

// ExpirePendingBookings cancels every pending booking whose payment window
// has passed. A failing booking is logged and skipped. It returns how many
// bookings were cancelled.
func (c *Coordinator) ExpirePendingBookings(ctx context.Context) (int, error) {
	expired, err := c.store.Bookings().ListExpiredPending(ctx, c.opts.Now())
	if err != nil {
		return 0, err
	}

	count := 0
	for _, b := range expired {
		if ctx.Err() != nil {
			return count, ctx.Err()
		}
		if _, err := c.cancel(ctx, b.ID, []model.BookingStatus{model.BookingPending}, nil, ExpiryReason); err != nil {
			log.Printf("Failed to expire booking %s: %v", b.BookingNumber, err)
			continue
		}
		count++
	}
	if len(expired) > 0 {
		log.Printf("Expired %d of %d unpaid bookings", count, len(expired))
	}
	return count, nil
}

func statusIn(s model.BookingStatus, set []model.BookingStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

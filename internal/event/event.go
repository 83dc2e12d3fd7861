// Package event defines the domain events emitted after a booking or payment
// change has been committed.
package event

import (
	"context"
	"time"

	"hotel-booking-backend/internal/model"
)

// Kind names a domain event.
type Kind string

const (
	BookingCreated    Kind = "booking.created"
	PaymentSuccessful Kind = "payment.successful"
)

// Event is a committed state change. Booking is always set; Payment only for
// payment events.
type Event struct {
	Kind       Kind
	Booking    *model.Booking
	Payment    *model.Payment
	OccurredAt time.Time
}

// Publisher accepts events for delivery. Publish must not block on consumers
// and must not fail the caller: delivery is at most once.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, e Event)

func (f PublisherFunc) Publish(ctx context.Context, e Event) { f(ctx, e) }

// Discard drops every event.
var Discard Publisher = PublisherFunc(func(context.Context, Event) {})

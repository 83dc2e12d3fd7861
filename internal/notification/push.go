package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"hotel-booking-backend/internal/event"
	"hotel-booking-backend/internal/model"
	"hotel-booking-backend/internal/store"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Message is the JSON payload shown by the guest's service worker.
type Message struct {
	Title         string `json:"title"`
	Body          string `json:"body"`
	BookingNumber string `json:"booking_number"`
}

// PushConsumer notifies the booking's guest on every browser they subscribed.
type PushConsumer struct {
	subs    store.SubscriptionRepository
	webpush *webpush.Options
	sender  NotificationSender
}

// NewPushConsumer creates a consumer sending through the webpush library.
func NewPushConsumer(subs store.SubscriptionRepository, webpushOptions *webpush.Options) *PushConsumer {
	return &PushConsumer{
		subs:    subs,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
	}
}

func (p *PushConsumer) Name() string { return "webpush" }

// Handle sends the event to each of the guest's subscriptions. Expired
// subscriptions are deleted.
func (p *PushConsumer) Handle(ctx context.Context, e event.Event) error {
	if e.Booking == nil {
		return nil
	}
	subscriptions, err := p.subs.ListByUser(ctx, e.Booking.UserID)
	if err != nil {
		return err
	}
	if len(subscriptions) == 0 {
		return nil
	}

	payload, err := json.Marshal(messageFor(e))
	if err != nil {
		return fmt.Errorf("failed to encode push message: %w", err)
	}

	log.Printf("Sending %d notifications for booking %s", len(subscriptions), e.Booking.BookingNumber)
	for _, sub := range subscriptions {
		p.send(ctx, sub, payload)
	}
	return nil
}

func (p *PushConsumer) send(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := p.sender.Send(payload, wpSub, p.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := p.subs.Delete(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}

func messageFor(e event.Event) Message {
	b := e.Booking
	m := Message{BookingNumber: b.BookingNumber}
	switch {
	case e.Kind == event.PaymentSuccessful:
		m.Title = "Payment received"
		m.Body = fmt.Sprintf("Payment received for %s. See you on %s!", b.BookingNumber, b.CheckInDate.Format(time.DateOnly))
	case b.Status == model.BookingPending && b.ExpiresAt != nil:
		m.Title = "Booking received"
		m.Body = fmt.Sprintf("Booking %s received. Complete payment before %s UTC to keep your room.",
			b.BookingNumber, b.ExpiresAt.UTC().Format("15:04"))
	default:
		m.Title = "Booking confirmed"
		m.Body = fmt.Sprintf("Booking %s confirmed for %s to %s.",
			b.BookingNumber, b.CheckInDate.Format(time.DateOnly), b.CheckOutDate.Format(time.DateOnly))
	}
	return m
}

// Package payment keeps Payment and Booking state in step with the payment
// gateway, whether the gateway pushes a webhook, is polled, or staff record a
// payment taken at the desk.
package payment

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"gorm.io/datatypes"

	"hotel-booking-backend/internal/apperr"
	"hotel-booking-backend/internal/event"
	"hotel-booking-backend/internal/gateway"
	"hotel-booking-backend/internal/idgen"
	"hotel-booking-backend/internal/model"
	"hotel-booking-backend/internal/store"
)

const defaultFailureReason = "Payment failed"

// Options configures the gateway checkout and the clock.
type Options struct {
	Currency    string
	CallbackURL string
	// ReturnURL may contain {booking_number}.
	ReturnURL string
	Now       func() time.Time
}

// Reconciler drives payment state changes.
type Reconciler struct {
	store     store.Store
	gateway   gateway.Gateway
	publisher event.Publisher
	ids       idgen.Generator
	opts      Options
}

// NewReconciler creates a Reconciler.
func NewReconciler(s store.Store, gw gateway.Gateway, publisher event.Publisher, ids idgen.Generator, opts Options) *Reconciler {
	if opts.Currency == "" {
		opts.Currency = "ETB"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if publisher == nil {
		publisher = event.Discard
	}
	return &Reconciler{store: s, gateway: gw, publisher: publisher, ids: ids, opts: opts}
}

// Checkout is the result of InitializePayment.
type Checkout struct {
	PaymentID     int64  `json:"payment_id"`
	TransactionID string `json:"transaction_id"`
	CheckoutURL   string `json:"checkout_url"`
}

// CreatePayment opens a pending payment for the booking total.
func (r *Reconciler) CreatePayment(ctx context.Context, bookingID int64, channel model.Channel) (*model.Payment, error) {
	if !channel.Valid() {
		return nil, apperr.New(apperr.ErrValidation, "unknown payment method %q", channel)
	}
	b, err := r.store.Bookings().FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.Status.Live() || b.Status == model.BookingCheckedOut {
		return nil, apperr.New(apperr.ErrConflict, "booking %s is %s and cannot take payments", b.BookingNumber, b.Status)
	}
	if err := r.ensureUnpaid(ctx, r.store, b, 0); err != nil {
		return nil, err
	}

	p := &model.Payment{
		BookingID:     b.ID,
		TransactionID: r.ids.TransactionID(),
		Amount:        b.TotalAmount,
		Currency:      r.opts.Currency,
		Channel:       channel,
		Status:        model.PaymentPending,
	}
	if err := r.store.Payments().Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// InitializePayment opens a gateway checkout for a pending pay_now booking.
// A gateway failure marks the payment failed and is returned as an upstream
// error; it is not retried.
func (r *Reconciler) InitializePayment(ctx context.Context, bookingID int64) (*Checkout, error) {
	b, err := r.store.Bookings().FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.PaymentMethod != model.PayNow {
		return nil, apperr.New(apperr.ErrConflict, "booking %s is set to pay at hotel", b.BookingNumber)
	}
	if b.Status != model.BookingPending {
		return nil, apperr.New(apperr.ErrConflict, "booking %s is %s, payment is only possible while pending", b.BookingNumber, b.Status)
	}

	p, err := r.CreatePayment(ctx, b.ID, model.ChannelChapa)
	if err != nil {
		return nil, err
	}

	req := gateway.InitializeRequest{
		TxRef:       p.TransactionID,
		Amount:      p.Amount,
		Currency:    p.Currency,
		CallbackURL: r.opts.CallbackURL,
		ReturnURL:   strings.ReplaceAll(r.opts.ReturnURL, "{booking_number}", b.BookingNumber),
		Title:       "Hotel Booking Payment",
		Description: "Payment for booking " + b.BookingNumber,
	}
	if g := b.PrimaryGuest(); g != nil {
		req.Email, req.FirstName, req.LastName, req.Phone = g.Email, g.FirstName, g.LastName, g.Phone
	}

	checkout, err := r.gateway.Initialize(ctx, req)
	if err != nil {
		log.Printf("Chapa initialization failed for %s: %v", p.TransactionID, err)
		if _, uerr := r.store.Payments().Transition(ctx, p.ID,
			[]model.PaymentStatus{model.PaymentPending}, model.PaymentFailed,
			map[string]any{"failure_reason": "Failed to initialize payment with Chapa"}); uerr != nil {
			log.Printf("Failed to mark payment %s failed: %v", p.TransactionID, uerr)
		}
		return nil, apperr.Wrap(apperr.ErrUpstream, err, "failed to initialize payment, please try again")
	}

	ok, err := r.store.Payments().Transition(ctx, p.ID,
		[]model.PaymentStatus{model.PaymentPending}, model.PaymentProcessing,
		map[string]any{
			"gateway_reference": checkout.Reference,
			"payment_details":   details(checkout.Raw),
		})
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Printf("Payment %s left pending before checkout was recorded", p.TransactionID)
	}

	return &Checkout{PaymentID: p.ID, TransactionID: p.TransactionID, CheckoutURL: checkout.CheckoutURL}, nil
}

// WebhookPayload is a gateway notification about one transaction.
type WebhookPayload struct {
	TxRef     string
	Status    string
	Message   string
	Reference string
	Raw       json.RawMessage
}

// Outcome is what a webhook delivery did.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	// OutcomeDuplicate means the payment was already completed; nothing changed.
	OutcomeDuplicate Outcome = "duplicate"
)

// HandleWebhook applies a gateway notification. Re-delivery of a success is
// acknowledged as a duplicate without side effects.
func (r *Reconciler) HandleWebhook(ctx context.Context, payload WebhookPayload) (Outcome, error) {
	if payload.TxRef == "" {
		return "", apperr.New(apperr.ErrValidation, "transaction reference not found in webhook")
	}

	var (
		outcome   Outcome
		completed *model.Payment
		booking   *model.Booking
	)
	err := r.store.Transaction(ctx, func(tx store.Store) error {
		p, err := tx.Payments().FindByTransactionID(ctx, payload.TxRef)
		if err != nil {
			return err
		}
		switch p.Status {
		case model.PaymentCompleted:
			outcome = OutcomeDuplicate
			return nil
		case model.PaymentRefunded:
			return apperr.New(apperr.ErrConflict, "payment %s has been refunded", p.TransactionID)
		}

		if payload.Status != gateway.StatusSuccess {
			reason := payload.Message
			if reason == "" {
				reason = defaultFailureReason
			}
			_, err := tx.Payments().Transition(ctx, p.ID,
				[]model.PaymentStatus{model.PaymentPending, model.PaymentProcessing, model.PaymentFailed}, model.PaymentFailed,
				map[string]any{"failure_reason": reason, "payment_details": details(payload.Raw)})
			outcome = OutcomeFailed
			return err
		}

		fields := map[string]any{"payment_details": details(payload.Raw)}
		if payload.Reference != "" {
			fields["gateway_reference"] = payload.Reference
		}
		completed, booking, err = r.complete(ctx, tx, p, fields)
		if err != nil {
			return err
		}
		if completed == nil {
			outcome = OutcomeDuplicate
			return nil
		}
		outcome = OutcomeCompleted
		return nil
	})
	if err != nil {
		return "", err
	}

	switch outcome {
	case OutcomeCompleted:
		log.Printf("Payment %s completed for booking %s", completed.TransactionID, booking.BookingNumber)
		r.publish(ctx, completed, booking)
	case OutcomeFailed:
		log.Printf("Payment %s failed: %s", payload.TxRef, payload.Message)
	case OutcomeDuplicate:
		log.Printf("Duplicate webhook for completed payment %s ignored", payload.TxRef)
	}
	return outcome, nil
}

// VerifyPayment asks the gateway for the transaction state and, when it has
// settled but the local payment has not, applies it through HandleWebhook.
func (r *Reconciler) VerifyPayment(ctx context.Context, transactionID string) (*model.Payment, error) {
	p, err := r.store.Payments().FindByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	v, err := r.gateway.Verify(ctx, transactionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrUpstream, err, "failed to verify payment with Chapa")
	}

	if v.Succeeded() && p.Status != model.PaymentCompleted {
		if _, err := r.HandleWebhook(ctx, WebhookPayload{
			TxRef:     transactionID,
			Status:    v.Status,
			Reference: v.Reference,
			Raw:       v.Raw,
		}); err != nil {
			return nil, err
		}
	}
	return r.store.Payments().FindByTransactionID(ctx, transactionID)
}

// MarkCashPayment records a payment taken by staff at the desk.
func (r *Reconciler) MarkCashPayment(ctx context.Context, paymentID, staffID int64) (*model.Payment, error) {
	var (
		completed *model.Payment
		booking   *model.Booking
	)
	err := r.store.Transaction(ctx, func(tx store.Store) error {
		p, err := tx.Payments().FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.Status == model.PaymentCompleted || p.Status == model.PaymentRefunded {
			return apperr.New(apperr.ErrConflict, "payment %s is already %s", p.TransactionID, p.Status)
		}

		completed, booking, err = r.complete(ctx, tx, p, map[string]any{"processed_by": staffID})
		if err != nil {
			return err
		}
		if completed == nil {
			return apperr.New(apperr.ErrConflict, "payment %s was completed concurrently", p.TransactionID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Payment %s marked paid by staff %d", completed.TransactionID, staffID)
	r.publish(ctx, completed, booking)
	return completed, nil
}

// complete moves the payment to completed and a pending booking to
// confirmed. It returns a nil payment when another delivery completed it
// first, and a conflict when a different payment already settled the booking.
// Bookings past pending are left alone.
func (r *Reconciler) complete(ctx context.Context, tx store.Store, p *model.Payment, fields map[string]any) (*model.Payment, *model.Booking, error) {
	b, err := tx.Bookings().LockByID(ctx, p.BookingID)
	if err != nil {
		return nil, nil, err
	}
	if err := r.ensureUnpaid(ctx, tx, b, p.ID); err != nil {
		log.Printf("WARNING: payment %s settled but booking %s is already paid, refund review needed", p.TransactionID, b.BookingNumber)
		return nil, nil, err
	}

	now := r.opts.Now()
	fields["paid_at"] = &now

	ok, err := tx.Payments().Transition(ctx, p.ID,
		[]model.PaymentStatus{model.PaymentPending, model.PaymentProcessing, model.PaymentFailed}, model.PaymentCompleted, fields)
	if err != nil || !ok {
		return nil, nil, err
	}

	switch b.Status {
	case model.BookingPending:
		if _, err := tx.Bookings().Transition(ctx, b.ID,
			[]model.BookingStatus{model.BookingPending}, model.BookingConfirmed,
			map[string]any{"expires_at": nil}); err != nil {
			return nil, nil, err
		}
	case model.BookingCancelled, model.BookingNoShow:
		log.Printf("WARNING: payment %s completed for %s booking %s, refund review needed", p.TransactionID, b.Status, b.BookingNumber)
	}
	if b, err = tx.Bookings().FindByID(ctx, b.ID); err != nil {
		return nil, nil, err
	}

	completed, err := tx.Payments().FindByID(ctx, p.ID)
	if err != nil {
		return nil, nil, err
	}
	return completed, b, nil
}

// ensureUnpaid rejects a booking that already has a completed payment other
// than the one with id except.
func (r *Reconciler) ensureUnpaid(ctx context.Context, s store.Store, b *model.Booking, except int64) error {
	payments, err := s.Payments().ListByBooking(ctx, b.ID)
	if err != nil {
		return err
	}
	for _, other := range payments {
		if other.ID != except && other.Status == model.PaymentCompleted {
			return apperr.New(apperr.ErrConflict, "booking %s is already paid by %s", b.BookingNumber, other.TransactionID)
		}
	}
	return nil
}

func (r *Reconciler) publish(ctx context.Context, p *model.Payment, b *model.Booking) {
	r.publisher.Publish(ctx, event.Event{
		Kind:       event.PaymentSuccessful,
		Booking:    b,
		Payment:    p,
		OccurredAt: r.opts.Now(),
	})
}

func details(raw json.RawMessage) datatypes.JSON {
	if len(raw) == 0 {
		return nil
	}
	return datatypes.JSON(raw)
}

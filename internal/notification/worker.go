package notification

import (
	"context"
	"log"
	"sync"

	"hotel-booking-backend/internal/event"
)

// Consumer handles one delivered event. A returned error is logged; it never
// reaches the publisher.
type Consumer interface {
	Name() string
	Handle(ctx context.Context, e event.Event) error
}

// WorkerPool fans published events out to every subscribed consumer on a
// fixed number of goroutines. Delivery is at most once: when the queue is
// full the event is dropped.
type WorkerPool struct {
	size int
	jobs chan event.Event

	mu        sync.RWMutex
	consumers []Consumer
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size, queueSize int) *WorkerPool {
	if size < 1 {
		size = 1
	}
	if queueSize < 1 {
		queueSize = size
	}
	return &WorkerPool{
		size: size,
		jobs: make(chan event.Event, queueSize), // Buffered channel
	}
}

// Subscribe registers a consumer for every subsequent event.
func (wp *WorkerPool) Subscribe(c Consumer) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	wp.consumers = append(wp.consumers, c)
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Worker %d started", id)
	for {
		select {
		case e := <-wp.jobs:
			wp.deliver(ctx, e)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Publish queues the event without blocking.
func (wp *WorkerPool) Publish(_ context.Context, e event.Event) {
	select {
	case wp.jobs <- e:
	default:
		log.Printf("Event queue full, dropping %s for booking %s", e.Kind, bookingNumber(e))
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan event.Event {
	return wp.jobs
}

func (wp *WorkerPool) deliver(ctx context.Context, e event.Event) {
	wp.mu.RLock()
	consumers := append([]Consumer(nil), wp.consumers...)
	wp.mu.RUnlock()

	for _, c := range consumers {
		wp.handle(ctx, c, e)
	}
}

func (wp *WorkerPool) handle(ctx context.Context, c Consumer, e event.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Consumer %s panicked on %s: %v", c.Name(), e.Kind, r)
		}
	}()
	if err := c.Handle(ctx, e); err != nil {
		log.Printf("Consumer %s failed on %s for booking %s: %v", c.Name(), e.Kind, bookingNumber(e), err)
	}
}

func bookingNumber(e event.Event) string {
	if e.Booking == nil {
		return "-"
	}
	return e.Booking.BookingNumber
}

// LogConsumer writes every event to the standard logger.
type LogConsumer struct{}

func (LogConsumer) Name() string { return "log" }

func (LogConsumer) Handle(_ context.Context, e event.Event) error {
	switch e.Kind {
	case event.PaymentSuccessful:
		log.Printf("[event] %s booking=%s payment=%s amount=%.2f %s",
			e.Kind, bookingNumber(e), e.Payment.TransactionID, e.Payment.Amount, e.Payment.Currency)
	default:
		log.Printf("[event] %s booking=%s status=%s total=%.2f",
			e.Kind, bookingNumber(e), e.Booking.Status, e.Booking.TotalAmount)
	}
	return nil
}

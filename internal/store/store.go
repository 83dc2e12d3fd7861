package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"hotel-booking-backend/internal/model"
)

// Store gives access to every repository. Repositories obtained from the
// Store passed to a Transaction callback share that transaction.
type Store interface {
	Calendar() CalendarStore
	Rooms() RoomRepository
	RateRules() RateRuleRepository
	Bookings() BookingRepository
	Payments() PaymentRepository
	Hotels() HotelRepository
	Subscriptions() SubscriptionRepository

	// Transaction runs fn atomically. Any error returned by fn rolls back
	// every write made through tx.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// CalendarStore is the per-room, per-night availability ledger.
// All ranges are half-open: [checkIn, checkOut).
type CalendarStore interface {
	IsRangeFree(ctx context.Context, roomID int64, checkIn, checkOut time.Time) (bool, error)
	Reserve(ctx context.Context, roomID int64, checkIn, checkOut time.Time) error
	Release(ctx context.Context, roomID int64, checkIn, checkOut time.Time) error
	Provision(ctx context.Context, roomID int64, start, end time.Time) (int64, error)
	BulkSetStatus(ctx context.Context, roomIDs []int64, date time.Time, status model.CalendarStatus) error
	BlockedRoomIDs(ctx context.Context, roomIDs []int64, checkIn, checkOut time.Time) (map[int64]bool, error)
	UnavailableDates(ctx context.Context, roomID int64, from, to time.Time) ([]time.Time, error)
}

// RoomQuery selects bookable rooms of a hotel.
type RoomQuery struct {
	HotelID    int64
	RoomTypeID *int64
}

// RoomRepository reads and updates rooms.
type RoomRepository interface {
	FindByID(ctx context.Context, id int64) (*model.Room, error)
	// LockByID reads the room and holds a row lock until the transaction ends.
	LockByID(ctx context.Context, id int64) (*model.Room, error)
	ListBookable(ctx context.Context, q RoomQuery) ([]model.Room, error)
	UpdateStatus(ctx context.Context, id int64, status model.RoomStatus) error
}

// RateRuleRepository reads pricing rules.
type RateRuleRepository interface {
	// ActiveCovering returns active rules of the room type whose range covers
	// the stay, highest priority first.
	ActiveCovering(ctx context.Context, roomTypeID int64, checkIn, checkOut time.Time) ([]model.RateRule, error)
}

// BookingFilter narrows a booking listing.
type BookingFilter struct {
	UserID      *int64
	HotelID     *int64
	Status      model.BookingStatus
	CheckInDate *time.Time
	Search      string
	Page        Page
}

// BookingRepository persists bookings and their guests.
type BookingRepository interface {
	Create(ctx context.Context, b *model.Booking) error
	FindByID(ctx context.Context, id int64) (*model.Booking, error)
	FindByNumber(ctx context.Context, number string) (*model.Booking, error)
	// LockByID reads the booking row without associations, locked FOR UPDATE
	// on postgres.
	LockByID(ctx context.Context, id int64) (*model.Booking, error)
	NumberExists(ctx context.Context, number string) (bool, error)
	List(ctx context.Context, f BookingFilter) ([]model.Booking, int64, error)
	// OverlappingRoomIDs returns the rooms among roomIDs holding a live booking
	// that intersects [checkIn, checkOut).
	OverlappingRoomIDs(ctx context.Context, roomIDs []int64, checkIn, checkOut time.Time) (map[int64]bool, error)
	ListExpiredPending(ctx context.Context, now time.Time) ([]model.Booking, error)
	// Transition moves the booking to `to` only if its current status is one of
	// from. It reports false when no row matched.
	Transition(ctx context.Context, id int64, from []model.BookingStatus, to model.BookingStatus, fields map[string]any) (bool, error)
}

// PaymentRepository persists payment attempts.
type PaymentRepository interface {
	Create(ctx context.Context, p *model.Payment) error
	FindByID(ctx context.Context, id int64) (*model.Payment, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*model.Payment, error)
	ListByBooking(ctx context.Context, bookingID int64) ([]model.Payment, error)
	Transition(ctx context.Context, id int64, from []model.PaymentStatus, to model.PaymentStatus, fields map[string]any) (bool, error)
}

// HotelRepository reads the hotel catalogue.
type HotelRepository interface {
	List(ctx context.Context, page Page) ([]model.Hotel, int64, error)
	FindByID(ctx context.Context, id int64) (*model.Hotel, error)
	ListRoomTypes(ctx context.Context, page Page) ([]model.RoomType, int64, error)
	// FindRoomType loads a room type with its hotel, amenities and rooms.
	FindRoomType(ctx context.Context, id int64) (*model.RoomType, error)
}

// SubscriptionRepository persists browser push subscriptions.
type SubscriptionRepository interface {
	Upsert(ctx context.Context, sub *model.PushSubscription) error
	Find(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	ListByUser(ctx context.Context, userID int64) ([]model.PushSubscription, error)
	Delete(ctx context.Context, endpoint string) error
}

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

const defaultPageSize = 15

// Normalize raises the page number to 1 and replaces sizes outside [1, 100] with 15.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 || p.Size > 100 {
		p.Size = defaultPageSize
	}
	return p
}

func (p Page) offset() int {
	return (p.Number - 1) * p.Size
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Calendar() CalendarStore { return &calendarStore{db: s.db} }
func (s *gormStore) Rooms() RoomRepository { return &roomRepo{db: s.db} }
func (s *gormStore) RateRules() RateRuleRepository { return &rateRuleRepo{db: s.db} }
func (s *gormStore) Bookings() BookingRepository { return &bookingRepo{db: s.db} }
func (s *gormStore) Payments() PaymentRepository { return &paymentRepo{db: s.db} }
func (s *gormStore) Hotels() HotelRepository { return &hotelRepo{db: s.db} }
func (s *gormStore) Subscriptions() SubscriptionRepository { return &subscriptionRepo{db: s.db} }

// Transaction runs fn inside a database transaction bound to a new Store.
func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hotel-booking-backend/internal/model"
)

type bookingRepo struct {
	db *gorm.DB
}

// Create inserts the booking together with its guests.
func (r *bookingRepo) Create(ctx context.Context, b *model.Booking) error {
	if err := r.db.WithContext(ctx).Create(b).Error; err != nil {
		return translate(err, "booking")
	}
	return nil
}

func (r *bookingRepo) loaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Hotel").
		Preload("Room").
		Preload("RoomType").
		Preload("Guests", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("id") })
}

func (r *bookingRepo) FindByID(ctx context.Context, id int64) (*model.Booking, error) {
	var b model.Booking
	if err := r.loaded(ctx).First(&b, id).Error; err != nil {
		return nil, translate(err, "booking")
	}
	return &b, nil
}

func (r *bookingRepo) FindByNumber(ctx context.Context, number string) (*model.Booking, error) {
	var b model.Booking
	if err := r.loaded(ctx).Where("booking_number = ?", number).First(&b).Error; err != nil {
		return nil, translate(err, "booking")
	}
	return &b, nil
}

func (r *bookingRepo) LockByID(ctx context.Context, id int64) (*model.Booking, error) {
	q := r.db.WithContext(ctx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var b model.Booking
	if err := q.First(&b, id).Error; err != nil {
		return nil, translate(err, "booking")
	}
	return &b, nil
}

// NumberExists also sees soft-deleted bookings, since the unique index does.
func (r *bookingRepo) NumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&model.Booking{}).
		Where("booking_number = ?", number).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check booking number: %w", err)
	}
	return count > 0, nil
}

// List returns one page of bookings, newest first, and the total match count.
func (r *bookingRepo) List(ctx context.Context, f BookingFilter) ([]model.Booking, int64, error) {
	filter := func(db *gorm.DB) *gorm.DB {
		if f.UserID != nil {
			db = db.Where("user_id = ?", *f.UserID)
		}
		if f.HotelID != nil {
			db = db.Where("hotel_id = ?", *f.HotelID)
		}
		if f.Status != "" {
			db = db.Where("status = ?", f.Status)
		}
		if f.CheckInDate != nil {
			db = db.Where("check_in_date = ?", model.Day(*f.CheckInDate))
		}
		if f.Search != "" {
			db = db.Where("booking_number LIKE ?", "%"+f.Search+"%")
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Booking{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	page := f.Page.Normalize()
	var bookings []model.Booking
	err := r.db.WithContext(ctx).Scopes(filter).
		Preload("Hotel").Preload("RoomType").Preload("Payments").
		Order("created_at DESC").Order("id DESC").
		Offset(page.offset()).Limit(page.Size).
		Find(&bookings).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, total, nil
}

// OverlappingRoomIDs uses the half-open overlap test: an existing stay
// [in, out) intersects the requested one iff in < checkOut and out > checkIn.
func (r *bookingRepo) OverlappingRoomIDs(ctx context.Context, roomIDs []int64, checkIn, checkOut time.Time) (map[int64]bool, error) {
	taken := make(map[int64]bool)
	if len(roomIDs) == 0 {
		return taken, nil
	}
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.Booking{}).
		Where("room_id IN ? AND status NOT IN ? AND check_in_date < ? AND check_out_date > ?",
			roomIDs,
			[]model.BookingStatus{model.BookingCancelled, model.BookingNoShow},
			model.Day(checkOut), model.Day(checkIn)).
		Distinct().
		Pluck("room_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up overlapping bookings: %w", err)
	}
	for _, id := range ids {
		taken[id] = true
	}
	return taken, nil
}

func (r *bookingRepo) ListExpiredPending(ctx context.Context, now time.Time) ([]model.Booking, error) {
	var bookings []model.Booking
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", model.BookingPending, now).
		Order("id").
		Find(&bookings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expired bookings: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepo) Transition(ctx context.Context, id int64, from []model.BookingStatus, to model.BookingStatus, fields map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).Model(&model.Booking{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to move booking %d to %s: %w", id, to, res.Error)
	}
	return res.RowsAffected == 1, nil
}

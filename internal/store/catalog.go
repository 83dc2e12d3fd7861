package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"hotel-booking-backend/internal/model"
)

type hotelRepo struct {
	db *gorm.DB
}

// List returns active hotels by id.
func (r *hotelRepo) List(ctx context.Context, page Page) ([]model.Hotel, int64, error) {
	page = page.Normalize()
	active := func(db *gorm.DB) *gorm.DB { return db.Where("is_active = ?", true) }

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Hotel{}).Scopes(active).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count hotels: %w", err)
	}

	var hotels []model.Hotel
	err := r.db.WithContext(ctx).Scopes(active).
		Order("id").
		Offset(page.offset()).Limit(page.Size).
		Find(&hotels).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list hotels: %w", err)
	}
	return hotels, total, nil
}

// FindByID loads a hotel with its active room types and their amenities.
func (r *hotelRepo) FindByID(ctx context.Context, id int64) (*model.Hotel, error) {
	var hotel model.Hotel
	err := r.db.WithContext(ctx).
		Preload("RoomTypes", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("id")
		}).
		Preload("RoomTypes.Amenities").
		First(&hotel, id).Error
	if err != nil {
		return nil, translate(err, "hotel")
	}
	return &hotel, nil
}

// ListRoomTypes returns active room types across hotels by id, with their
// hotel and amenities.
func (r *hotelRepo) ListRoomTypes(ctx context.Context, page Page) ([]model.RoomType, int64, error) {
	page = page.Normalize()
	active := func(db *gorm.DB) *gorm.DB { return db.Where("is_active = ?", true) }

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.RoomType{}).Scopes(active).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count room types: %w", err)
	}

	var roomTypes []model.RoomType
	err := r.db.WithContext(ctx).Scopes(active).
		Preload("Hotel").
		Preload("Amenities").
		Order("id").
		Offset(page.offset()).Limit(page.Size).
		Find(&roomTypes).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list room types: %w", err)
	}
	return roomTypes, total, nil
}

func (r *hotelRepo) FindRoomType(ctx context.Context, id int64) (*model.RoomType, error) {
	var rt model.RoomType
	err := r.db.WithContext(ctx).
		Preload("Hotel").
		Preload("Amenities").
		Preload("Rooms", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&rt, id).Error
	if err != nil {
		return nil, translate(err, "room type")
	}
	return &rt, nil
}

type rateRuleRepo struct {
	db *gorm.DB
}

// ActiveCovering orders equal priorities by id so the outcome never depends
// on the database's scan order.
func (r *rateRuleRepo) ActiveCovering(ctx context.Context, roomTypeID int64, checkIn, checkOut time.Time) ([]model.RateRule, error) {
	var rules []model.RateRule
	err := r.db.WithContext(ctx).
		Where("room_type_id = ? AND is_active = ? AND start_date <= ? AND end_date >= ?",
			roomTypeID, true, model.Day(checkIn), model.Day(checkOut)).
		Order("priority DESC").
		Order("id").
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load rate rules for room type %d: %w", roomTypeID, err)
	}
	return rules, nil
}

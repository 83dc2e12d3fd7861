package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hotel-booking-backend/internal/apperr"
	"hotel-booking-backend/internal/model"
)

type roomRepo struct {
	db *gorm.DB
}

func (r *roomRepo) FindByID(ctx context.Context, id int64) (*model.Room, error) {
	var room model.Room
	if err := r.db.WithContext(ctx).Preload("RoomType").First(&room, id).Error; err != nil {
		return nil, translate(err, "room")
	}
	return &room, nil
}

// LockByID takes a row lock on postgres. sqlite has no row locks; db.Init
// limits it to one connection so transactions run one at a time.
func (r *roomRepo) LockByID(ctx context.Context, id int64) (*model.Room, error) {
	q := r.db.WithContext(ctx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var room model.Room
	if err := q.First(&room, id).Error; err != nil {
		return nil, translate(err, "room")
	}
	return &room, nil
}

// ListBookable returns active rooms that are not under maintenance or out of
// service, with their room type and amenities, in id order.
func (r *roomRepo) ListBookable(ctx context.Context, q RoomQuery) ([]model.Room, error) {
	query := r.db.WithContext(ctx).
		Preload("RoomType.Amenities").
		Where("hotel_id = ? AND is_active = ? AND status NOT IN ?",
			q.HotelID, true, []model.RoomStatus{model.RoomMaintenance, model.RoomOutOfService})
	if q.RoomTypeID != nil {
		query = query.Where("room_type_id = ?", *q.RoomTypeID)
	}

	var rooms []model.Room
	if err := query.Order("id").Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to list rooms for hotel %d: %w", q.HotelID, err)
	}
	return rooms, nil
}

func (r *roomRepo) UpdateStatus(ctx context.Context, id int64, status model.RoomStatus) error {
	res := r.db.WithContext(ctx).Model(&model.Room{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to set room %d status to %s: %w", id, status, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("room")
	}
	return nil
}

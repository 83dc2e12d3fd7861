package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hotel-booking-backend/internal/model"
)

const provisionBatchSize = 200

type calendarStore struct {
	db *gorm.DB
}

// IsRangeFree reports whether no night in [checkIn, checkOut) is booked or blocked.
func (s *calendarStore) IsRangeFree(ctx context.Context, roomID int64, checkIn, checkOut time.Time) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.CalendarEntry{}).
		Where("room_id = ? AND date >= ? AND date < ? AND status IN ?",
			roomID, model.Day(checkIn), model.Day(checkOut),
			[]model.CalendarStatus{model.CalendarBooked, model.CalendarBlocked}).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check calendar for room %d: %w", roomID, err)
	}
	return count == 0, nil
}

// Reserve marks every night of the range booked. Re-reserving is a no-op.
func (s *calendarStore) Reserve(ctx context.Context, roomID int64, checkIn, checkOut time.Time) error {
	entries := nightsFor(roomID, checkIn, checkOut, model.CalendarBooked)
	if len(entries) == 0 {
		return nil
	}
	if err := s.upsert(ctx, entries); err != nil {
		return fmt.Errorf("failed to reserve calendar for room %d: %w", roomID, err)
	}
	return nil
}

// Release marks every night of the range available, whatever it was before.
// Nights without a row are already available.
func (s *calendarStore) Release(ctx context.Context, roomID int64, checkIn, checkOut time.Time) error {
	err := s.db.WithContext(ctx).Model(&model.CalendarEntry{}).
		Where("room_id = ? AND date >= ? AND date < ?", roomID, model.Day(checkIn), model.Day(checkOut)).
		Update("status", model.CalendarAvailable).Error
	if err != nil {
		return fmt.Errorf("failed to release calendar for room %d: %w", roomID, err)
	}
	return nil
}

// Provision inserts available rows for [start, end), leaving existing rows untouched.
func (s *calendarStore) Provision(ctx context.Context, roomID int64, start, end time.Time) (int64, error) {
	entries := nightsFor(roomID, start, end, model.CalendarAvailable)
	if len(entries) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_id"}, {Name: "date"}},
			DoNothing: true,
		}).
		CreateInBatches(&entries, provisionBatchSize)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to provision calendar for room %d: %w", roomID, res.Error)
	}
	return res.RowsAffected, nil
}

// BulkSetStatus forces the status of one night on many rooms.
func (s *calendarStore) BulkSetStatus(ctx context.Context, roomIDs []int64, date time.Time, status model.CalendarStatus) error {
	if len(roomIDs) == 0 {
		return nil
	}
	day := model.Day(date)
	entries := make([]model.CalendarEntry, 0, len(roomIDs))
	for _, id := range roomIDs {
		entries = append(entries, model.CalendarEntry{RoomID: id, Date: day, Status: status})
	}
	if err := s.upsert(ctx, entries); err != nil {
		return fmt.Errorf("failed to set calendar status %q on %s: %w", status, day.Format(time.DateOnly), err)
	}
	return nil
}

// BlockedRoomIDs returns which of roomIDs have a blocked night inside the range.
func (s *calendarStore) BlockedRoomIDs(ctx context.Context, roomIDs []int64, checkIn, checkOut time.Time) (map[int64]bool, error) {
	blocked := make(map[int64]bool)
	if len(roomIDs) == 0 {
		return blocked, nil
	}
	var ids []int64
	err := s.db.WithContext(ctx).Model(&model.CalendarEntry{}).
		Where("room_id IN ? AND date >= ? AND date < ? AND status = ?",
			roomIDs, model.Day(checkIn), model.Day(checkOut), model.CalendarBlocked).
		Distinct().
		Pluck("room_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up blocked rooms: %w", err)
	}
	for _, id := range ids {
		blocked[id] = true
	}
	return blocked, nil
}

// UnavailableDates lists booked or blocked nights of a room within [from, to).
func (s *calendarStore) UnavailableDates(ctx context.Context, roomID int64, from, to time.Time) ([]time.Time, error) {
	var entries []model.CalendarEntry
	err := s.db.WithContext(ctx).
		Select("date").
		Where("room_id = ? AND date >= ? AND date < ? AND status IN ?",
			roomID, model.Day(from), model.Day(to),
			[]model.CalendarStatus{model.CalendarBooked, model.CalendarBlocked}).
		Order("date").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unavailable dates for room %d: %w", roomID, err)
	}
	dates := make([]time.Time, len(entries))
	for i, e := range entries {
		dates[i] = model.Day(e.Date)
	}
	return dates, nil
}

func (s *calendarStore) upsert(ctx context.Context, entries []model.CalendarEntry) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(&entries).Error
}

func nightsFor(roomID int64, checkIn, checkOut time.Time, status model.CalendarStatus) []model.CalendarEntry {
	var entries []model.CalendarEntry
	model.EachNight(checkIn, checkOut, func(d time.Time) {
		entries = append(entries, model.CalendarEntry{RoomID: roomID, Date: d, Status: status})
	})
	return entries
}

package model

import "time"

// CalendarStatus is the state of one room-night in the calendar ledger.
type CalendarStatus string

const (
	CalendarAvailable CalendarStatus = "available"
	CalendarBooked    CalendarStatus = "booked"
	CalendarBlocked   CalendarStatus = "blocked"
)

// Valid reports whether s is a known calendar status.
func (s CalendarStatus) Valid() bool {
	switch s {
	case CalendarAvailable, CalendarBooked, CalendarBlocked:
		return true
	}
	return false
}

// CalendarEntry is the status of a room for a single night. (room_id, date) is unique.
type CalendarEntry struct {
	ID            int64          `gorm:"primaryKey"`
	RoomID        int64          `gorm:"uniqueIndex:idx_calendar_room_date;not null"`
	Date          time.Time      `gorm:"uniqueIndex:idx_calendar_room_date;not null"`
	Status        CalendarStatus `gorm:"size:16;not null;index"`
	PriceOverride *float64       `gorm:"type:decimal(10,2)"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RateRule overrides a room type's base price for stays inside [StartDate, EndDate].
type RateRule struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	RoomTypeID int64     `gorm:"index;not null" json:"room_type_id"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	StartDate  time.Time `gorm:"not null;index" json:"start_date"`
	EndDate    time.Time `gorm:"not null;index" json:"end_date"`
	Price      float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	MinStay    int       `json:"min_stay"`
	Priority   int       `gorm:"not null" json:"priority"`
	IsActive   bool      `gorm:"not null" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

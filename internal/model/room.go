package model

import "time"

// RoomStatus is the physical state of a room.
type RoomStatus string

const (
	RoomAvailable    RoomStatus = "available"
	RoomOccupied     RoomStatus = "occupied"
	RoomMaintenance  RoomStatus = "maintenance"
	RoomOutOfService RoomStatus = "out_of_service"
)

// Room is a single bookable unit of a hotel.
type Room struct {
	ID         int64      `gorm:"primaryKey" json:"id"`
	HotelID    int64      `gorm:"uniqueIndex:idx_rooms_hotel_number;not null" json:"hotel_id"`
	RoomTypeID int64      `gorm:"index;not null" json:"room_type_id"`
	RoomNumber string     `gorm:"uniqueIndex:idx_rooms_hotel_number;size:32;not null" json:"room_number"`
	Floor      int        `json:"floor"`
	Status     RoomStatus `gorm:"size:32;not null;index" json:"status"`
	IsActive   bool       `gorm:"not null" json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// Associations
	RoomType *RoomType `gorm:"constraint:OnDelete:RESTRICT" json:"room_type,omitempty"`
}

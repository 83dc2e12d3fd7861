package model

import "time"

// Hotel represents a property that owns room types and rooms.
type Hotel struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Slug      string    `gorm:"uniqueIndex;size:255;not null" json:"slug"`
	City      string    `gorm:"size:128" json:"city"`
	Address   string    `gorm:"size:512" json:"address"`
	Phone     string    `gorm:"size:32" json:"phone,omitempty"`
	Email     string    `gorm:"size:255" json:"email,omitempty"`
	IsActive  bool      `gorm:"not null;index" json:"is_active"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	// Associations
	RoomTypes []RoomType `gorm:"foreignKey:HotelID" json:"room_types,omitempty"`
}

// Amenity is a feature offered by a room type (wifi, minibar, ...).
type Amenity struct {
	ID   int64  `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:128;not null" json:"name"`
	Slug string `gorm:"uniqueIndex;size:128;not null" json:"slug"`
	Icon string `gorm:"size:64" json:"icon,omitempty"`
}

// RoomType groups rooms that share capacity, base price and amenities.
type RoomType struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	HotelID     int64     `gorm:"index;not null" json:"hotel_id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Slug        string    `gorm:"size:255;not null" json:"slug"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	BasePrice   float64   `gorm:"type:decimal(10,2);not null" json:"base_price"`
	MaxAdults   int       `gorm:"not null" json:"max_adults"`
	MaxChildren int       `gorm:"not null" json:"max_children"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Associations
	Hotel     *Hotel    `json:"hotel,omitempty"`
	Amenities []Amenity `gorm:"many2many:room_type_amenities;" json:"amenities,omitempty"`
	Rooms     []Room    `json:"rooms,omitempty"`
}

// HasAnyAmenity reports whether the room type offers at least one of ids.
// An empty ids list always matches.
func (rt *RoomType) HasAnyAmenity(ids []int64) bool {
	if len(ids) == 0 {
		return true
	}
	for _, a := range rt.Amenities {
		for _, id := range ids {
			if a.ID == id {
				return true
			}
		}
	}
	return false
}

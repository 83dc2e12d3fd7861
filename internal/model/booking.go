package model

import (
	"time"

	"gorm.io/gorm"
)

// BookingStatus is a state of the booking lifecycle.
type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"
	BookingConfirmed  BookingStatus = "confirmed"
	BookingCheckedIn  BookingStatus = "checked_in"
	BookingCheckedOut BookingStatus = "checked_out"
	BookingCancelled  BookingStatus = "cancelled"
	BookingNoShow     BookingStatus = "no_show"
)

// Live reports whether a booking in this status still holds its room.
func (s BookingStatus) Live() bool {
	return s != BookingCancelled && s != BookingNoShow
}

// PaymentMethod is how a guest intends to settle a booking.
type PaymentMethod string

const (
	PayNow     PaymentMethod = "pay_now"
	PayAtHotel PaymentMethod = "pay_at_hotel"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	return m == PayNow || m == PayAtHotel
}

// Booking is a reservation of one room for a range of nights.
type Booking struct {
	ID                 int64          `gorm:"primaryKey" json:"id"`
	BookingNumber      string         `gorm:"uniqueIndex;size:32;not null" json:"booking_number"`
	UserID             int64          `gorm:"index;not null" json:"user_id"`
	HotelID            int64          `gorm:"index;not null" json:"hotel_id"`
	RoomID             int64          `gorm:"index;not null" json:"room_id"`
	RoomTypeID         int64          `gorm:"index;not null" json:"room_type_id"`
	CheckInDate        time.Time      `gorm:"index;not null" json:"check_in_date"`
	CheckOutDate       time.Time      `gorm:"not null" json:"check_out_date"`
	NumberOfAdults     int            `gorm:"not null" json:"number_of_adults"`
	NumberOfChildren   int            `gorm:"not null" json:"number_of_children"`
	NumberOfNights     int            `gorm:"not null" json:"number_of_nights"`
	PricePerNight      float64        `gorm:"type:decimal(10,2);not null" json:"price_per_night"`
	Subtotal           float64        `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	TaxAmount          float64        `gorm:"type:decimal(10,2);not null" json:"tax_amount"`
	TotalAmount        float64        `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	Status             BookingStatus  `gorm:"size:32;not null;index" json:"status"`
	PaymentMethod      PaymentMethod  `gorm:"size:32;not null" json:"payment_method"`
	SpecialRequests    string         `gorm:"size:1000" json:"special_requests,omitempty"`
	ExpiresAt          *time.Time     `gorm:"index" json:"expires_at,omitempty"`
	CheckedInAt        *time.Time     `json:"checked_in_at,omitempty"`
	CheckedOutAt       *time.Time     `json:"checked_out_at,omitempty"`
	CancelledAt        *time.Time     `json:"cancelled_at,omitempty"`
	CancelledBy        *int64         `json:"cancelled_by,omitempty"`
	CancellationReason string         `gorm:"size:1000" json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	// Associations
	Hotel    *Hotel         `json:"hotel,omitempty"`
	Room     *Room          `json:"room,omitempty"`
	RoomType *RoomType      `json:"room_type,omitempty"`
	Guests   []BookingGuest `gorm:"constraint:OnDelete:CASCADE" json:"guests,omitempty"`
	Payments []Payment      `json:"payments,omitempty"`
}

// PrimaryGuest returns the guest flagged primary, or the first guest.
func (b *Booking) PrimaryGuest() *BookingGuest {
	for i := range b.Guests {
		if b.Guests[i].IsPrimary {
			return &b.Guests[i]
		}
	}
	if len(b.Guests) > 0 {
		return &b.Guests[0]
	}
	return nil
}

// GuestType distinguishes adults from children on the guest list.
type GuestType string

const (
	GuestAdult GuestType = "adult"
	GuestChild GuestType = "child"
)

// BookingGuest is one person listed on a booking at creation time.
type BookingGuest struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	BookingID int64     `gorm:"index;not null" json:"booking_id"`
	FirstName string    `gorm:"size:128;not null" json:"first_name"`
	LastName  string    `gorm:"size:128;not null" json:"last_name"`
	Email     string    `gorm:"size:255" json:"email,omitempty"`
	Phone     string    `gorm:"size:32" json:"phone,omitempty"`
	GuestType GuestType `gorm:"size:16;not null" json:"guest_type"`
	IsPrimary bool      `gorm:"not null" json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}

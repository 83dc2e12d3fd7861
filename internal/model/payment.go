package model

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentStatus is a state of a payment attempt.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
)

// Channel is the instrument a payment was made with.
type Channel string

const (
	ChannelChapa        Channel = "chapa"
	ChannelCash         Channel = "cash"
	ChannelCard         Channel = "card"
	ChannelBankTransfer Channel = "bank_transfer"
)

// Valid reports whether c is a known payment channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelChapa, ChannelCash, ChannelCard, ChannelBankTransfer:
		return true
	}
	return false
}

// Payment is one attempt to settle a booking. A booking may have several;
// at most one reaches completed.
type Payment struct {
	ID               int64          `gorm:"primaryKey" json:"id"`
	BookingID        int64          `gorm:"index;not null" json:"booking_id"`
	TransactionID    string         `gorm:"uniqueIndex;size:64;not null" json:"transaction_id"`
	GatewayReference string         `gorm:"size:128;index" json:"gateway_reference,omitempty"`
	Amount           float64        `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency         string         `gorm:"size:3;not null" json:"currency"`
	Channel          Channel        `gorm:"column:payment_method;size:32;not null" json:"payment_method"`
	Status           PaymentStatus  `gorm:"size:32;not null;index" json:"status"`
	PaymentDetails   datatypes.JSON `json:"payment_details,omitempty"`
	PaidAt           *time.Time     `json:"paid_at,omitempty"`
	ProcessedBy      *int64         `json:"processed_by,omitempty"`
	FailureReason    string         `gorm:"size:1000" json:"failure_reason,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

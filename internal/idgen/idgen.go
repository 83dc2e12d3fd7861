// Package idgen produces the human-facing identifiers of bookings and payments.
package idgen

import (
	"strings"

	"github.com/google/uuid"
)

// Generator creates booking numbers and payment transaction ids.
type Generator interface {
	BookingNumber() string
	TransactionID() string
}

// Random draws identifiers from random UUIDs.
type Random struct{}

// BookingNumber returns "BK-" followed by 8 uppercase alphanumerics.
func (Random) BookingNumber() string {
	return "BK-" + chars(8)
}

// TransactionID returns "TX-" followed by 12 uppercase alphanumerics.
func (Random) TransactionID() string {
	return "TX-" + chars(12)
}

func chars(n int) string {
	s := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(s[:n])
}

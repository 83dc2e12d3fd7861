package model

import (
	"math"
	"time"
)

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Nights returns the number of nights between two calendar dates.
func Nights(checkIn, checkOut time.Time) int {
	return int(Day(checkOut).Sub(Day(checkIn)).Hours() / 24)
}

// EachNight calls fn for every date in the half-open range [checkIn, checkOut).
func EachNight(checkIn, checkOut time.Time, fn func(time.Time)) {
	for d := Day(checkIn); d.Before(Day(checkOut)); d = d.AddDate(0, 0, 1) {
		fn(d)
	}
}

// RoundMoney rounds an amount to two decimal places.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

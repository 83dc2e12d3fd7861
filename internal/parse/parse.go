// Package parse turns raw request strings into typed values.
package parse

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"hotel-booking-backend/internal/model"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = time.DateOnly

// Date parses a YYYY-MM-DD calendar date as UTC midnight.
func Date(raw string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", raw)
	}
	return model.Day(d), nil
}

// Stay parses a check-in/check-out pair. Check-out must be after check-in.
func Stay(checkIn, checkOut string) (time.Time, time.Time, error) {
	in, err := Date(checkIn)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	out, err := Date(checkOut)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !out.After(in) {
		return time.Time{}, time.Time{}, fmt.Errorf("check-out %s must be after check-in %s", checkOut, checkIn)
	}
	return in, out, nil
}

// ID parses a positive integer identifier.
func ID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// IDList parses ids given either as repeated values or comma separated
// ("1,2", "3"). Empty items are skipped; duplicates are kept once.
func IDList(raw []string) ([]int64, error) {
	var ids []int64
	seen := make(map[int64]bool)
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			id, err := ID(part)
			if err != nil {
				return nil, err
			}
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// Roles splits a comma separated role header into lower-case role names.
func Roles(raw string) []string {
	var roles []string
	for _, r := range strings.Split(raw, ",") {
		r = strings.ToLower(strings.TrimSpace(r))
		if r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

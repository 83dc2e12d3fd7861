package idgen

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandom(t *testing.T) {
	var g Random

	testCases := []struct {
		name    string
		gen     func() string
		pattern *regexp.Regexp
	}{
		{name: "booking number", gen: g.BookingNumber, pattern: regexp.MustCompile(`^BK-[A-Z0-9]{8}$`)},
		{name: "transaction id", gen: g.TransactionID, pattern: regexp.MustCompile(`^TX-[A-Z0-9]{12}$`)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			seen := make(map[string]bool)
			for i := 0; i < 100; i++ {
				id := tc.gen()
				assert.Regexp(t, tc.pattern, id)
				seen[id] = true
			}
			assert.Greater(t, len(seen), 95)
		})
	}
}

package spotify

import (
	"net/http"
	"testing"
	"time"
)

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		value    string
		expected time.Duration
	}{
		{name: "absent", value: "", expected: 0},
		{name: "seconds", value: "3", expected: 3 * time.Second},
		{name: "seconds with spaces", value: " 7 ", expected: 7 * time.Second},
		{name: "fractional seconds", value: "1.5", expected: 1500 * time.Millisecond},
		{name: "zero", value: "0", expected: 0},
		{name: "negative", value: "-4", expected: 0},
		{name: "http date", value: now.Add(90 * time.Second).Format(http.TimeFormat), expected: 90 * time.Second},
		{name: "date in the past", value: now.Add(-time.Minute).Format(http.TimeFormat), expected: 0},
		{name: "garbage", value: "soon", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := http.Header{}
			if tt.value != "" {
				h.Set("Retry-After", tt.value)
			}
			if got := parseRetryAfter(h, now); got != tt.expected {
				t.Errorf("parseRetryAfter(%q) = %v, expected %v", tt.value, got, tt.expected)
			}
		})
	}
}

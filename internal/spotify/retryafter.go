package spotify

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// parseRetryAfter reads the Retry-After header as either delay seconds or an
// HTTP date. It returns 0 when the header is absent, malformed, or in the past.
func parseRetryAfter(h http.Header, now time.Time) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if n, err := strconv.Atoi(v); err == nil {
		if n > 0 {
			return time.Duration(n) * time.Second
		}
		return 0
	}
	// Spotify sends integers, but fractional seconds are accepted.
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		if f > 0 {
			return time.Duration(f * float64(time.Second))
		}
		return 0
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

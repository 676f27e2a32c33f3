package httputil

import (
	"net/http"
	"strconv"
	"time"
)

// Rate-limit response headers sent by GitHub.
const (
	HeaderRateLimit     = "X-RateLimit-Limit"
	HeaderRateRemaining = "X-RateLimit-Remaining"
	HeaderRateReset     = "X-RateLimit-Reset"
	HeaderRetryAfter    = "Retry-After"
)

// RateLimit is the budget announced by the most recent response.
type RateLimit struct {
	Limit      int
	Remaining  int
	Reset      time.Time     // When the budget refills
	RetryAfter time.Duration // Secondary-limit hint, if sent
	Known      bool          // X-RateLimit-Remaining was present and valid
}

// ParseRateLimit reads the X-RateLimit-* and Retry-After headers.
// Missing or malformed values leave the corresponding field zero.
func ParseRateLimit(h http.Header) RateLimit {
	var rl RateLimit
	if v, err := strconv.Atoi(h.Get(HeaderRateRemaining)); err == nil {
		rl.Remaining = v
		rl.Known = true
	}
	if v, err := strconv.Atoi(h.Get(HeaderRateLimit)); err == nil {
		rl.Limit = v
	}
	if v, err := strconv.ParseInt(h.Get(HeaderRateReset), 10, 64); err == nil {
		rl.Reset = time.Unix(v, 0)
	}
	if v, err := strconv.Atoi(h.Get(HeaderRetryAfter)); err == nil && v > 0 {
		rl.RetryAfter = time.Duration(v) * time.Second
	}
	return rl
}

// Exhausted reports whether the server said no requests remain.
func (rl RateLimit) Exhausted() bool {
	return rl.Known && rl.Remaining == 0
}

// Wait returns how long to sleep at now before retrying:
// max(reset-now, 0) + margin. A Retry-After hint longer than that wins.
func (rl RateLimit) Wait(now time.Time, margin time.Duration) time.Duration {
	var d time.Duration
	if !rl.Reset.IsZero() {
		d = max(rl.Reset.Sub(now), 0)
	}
	d += margin
	if rl.RetryAfter > d {
		d = rl.RetryAfter
	}
	return d
}

package httputil

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRateLimit(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderRateLimit, "5000")
	h.Set(HeaderRateRemaining, "0")
	h.Set(HeaderRateReset, "1717243200")

	rl := ParseRateLimit(h)
	assert.True(t, rl.Known)
	assert.True(t, rl.Exhausted())
	assert.Equal(t, 5000, rl.Limit)
	assert.Equal(t, time.Unix(1717243200, 0), rl.Reset)
}

func TestParseRateLimitMissing(t *testing.T) {
	rl := ParseRateLimit(http.Header{})
	assert.False(t, rl.Known)
	assert.False(t, rl.Exhausted(), "unknown budget must not count as exhausted")

	h := http.Header{}
	h.Set(HeaderRateRemaining, "abc")
	assert.False(t, ParseRateLimit(h).Known)
}

func TestRateLimitWait(t *testing.T) {
	now := time.Unix(1000, 0)
	margin := 10 * time.Second

	tests := []struct {
		name string
		rl   RateLimit
		want time.Duration
	}{
		{"reset in future", RateLimit{Reset: now.Add(5 * time.Second)}, 15 * time.Second},
		{"reset in past", RateLimit{Reset: now.Add(-time.Minute)}, 10 * time.Second},
		{"no reset header", RateLimit{}, 10 * time.Second},
		{"retry-after wins", RateLimit{Reset: now.Add(time.Second), RetryAfter: time.Minute}, time.Minute},
		{"retry-after shorter", RateLimit{Reset: now.Add(30 * time.Second), RetryAfter: time.Second}, 40 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rl.Wait(now, margin))
		})
	}
}

package integrations

import (
	"time"

	"github.com/matzehuels/reposcout/pkg/cache"
	"github.com/matzehuels/reposcout/pkg/httputil"
)

// Defaults for [Config]. Zero fields in a Config are replaced by these.
const (
	DefaultBaseURL       = "https://api.github.com"
	DefaultTimeout       = 30 * time.Second
	DefaultTTL           = cache.DefaultTTL
	DefaultCourtesyDelay = 2 * time.Second
	DefaultQuotaMargin   = 10 * time.Second
	DefaultMaxQuotaWaits = 3
	DefaultMaxQuotaWait  = 70 * time.Minute
	DefaultUserAgent     = "reposcout"
)

// Config configures an [Executor].
type Config struct {
	BaseURL   string        // API root; GraphQL is served at BaseURL + "/graphql"
	Token     string        // Bearer token; empty fails every call with AuthError
	Timeout   time.Duration // Per-call transport deadline
	UserAgent string

	TTL           time.Duration // Cache freshness window
	CourtesyDelay time.Duration // Pause after every successful network call; negative disables

	QuotaMargin   time.Duration // Added to the announced reset before retrying
	MaxQuotaWaits int           // Maximum number of quota waits per call
	MaxQuotaWait  time.Duration // Maximum cumulative quota wait per call

	Retry httputil.Policy // Transport-failure backoff
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.CourtesyDelay == 0 {
		c.CourtesyDelay = DefaultCourtesyDelay
	}
	if c.QuotaMargin <= 0 {
		c.QuotaMargin = DefaultQuotaMargin
	}
	if c.MaxQuotaWaits <= 0 {
		c.MaxQuotaWaits = DefaultMaxQuotaWaits
	}
	if c.MaxQuotaWait <= 0 {
		c.MaxQuotaWait = DefaultMaxQuotaWait
	}
	if c.Retry.Attempts == 0 {
		c.Retry = httputil.DefaultPolicy
	}
	return c
}

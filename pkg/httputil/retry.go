package httputil

import (
	"context"
	"time"

	"github.com/avast/retry-go"

	"github.com/matzehuels/reposcout/pkg/cache"
)

// Policy bounds the transport retry loop.
type Policy struct {
	Attempts uint          // Total attempts including the first; minimum 1
	Delay    time.Duration // Delay before the first retry; doubles after each
	MaxDelay time.Duration // Upper bound for a single delay (0 = unbounded)
}

// DefaultPolicy retries transport failures five times in total, starting at
// one second and doubling up to ten seconds.
var DefaultPolicy = Policy{Attempts: 5, Delay: time.Second, MaxDelay: 10 * time.Second}

// Retry executes fn until it succeeds, returns an error not marked with
// [cache.Retryable], the attempts run out, or ctx is done.
// onRetry, if non-nil, is called before each delay with the attempt number
// (starting at 0) and the error that caused it.
func Retry(ctx context.Context, p Policy, fn func() error, onRetry func(n uint, err error)) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(p.Attempts),
		retry.Delay(p.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(cache.IsRetryable),
		retry.LastErrorOnly(true),
	}
	if p.MaxDelay > 0 {
		opts = append(opts, retry.MaxDelay(p.MaxDelay))
	}
	if onRetry != nil {
		opts = append(opts, retry.OnRetry(onRetry))
	}
	return retry.Do(fn, opts...)
}

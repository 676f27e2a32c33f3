// Package httputil provides the HTTP plumbing shared by the GitHub query
// executor.
//
// # Retry
//
// [Retry] wraps a request with bounded exponential backoff (avast/retry-go).
// Only errors marked with cache.Retryable are retried: transport failures
// such as timeouts and connection resets. Status-code failures are final and
// returned immediately.
//
//	err := httputil.Retry(ctx, httputil.DefaultPolicy, func() error {
//	    resp, err := send()
//	    if err != nil {
//	        return cache.Retryable(err)
//	    }
//	    ...
//	}, nil)
//
// # Rate limits
//
// [ParseRateLimit] reads GitHub's X-RateLimit-* headers. When a 403 or 429
// response reports zero remaining requests, [RateLimit.Wait] gives the time
// to sleep until the budget resets plus a safety margin.
package httputil

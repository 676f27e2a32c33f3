package integrations

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/reposcout/pkg/cache"
	"github.com/matzehuels/reposcout/pkg/clock"
	"github.com/matzehuels/reposcout/pkg/errors"
	"github.com/matzehuels/reposcout/pkg/httputil"
	"github.com/matzehuels/reposcout/pkg/observability"
)

// Request describes one call to the GitHub API.
type Request struct {
	Method string     // GET (default) or POST
	Path   string     // Relative to Config.BaseURL, e.g. "/graphql"
	Query  url.Values // Optional query parameters
	Body   any        // JSON-encoded request body for POST

	// Key is the cache identity of the request. When empty it is derived
	// from Method, Path and Query.
	Key string

	// Shape labels the request for metrics ("graphql", "rest", ...).
	Shape string

	// NoCache skips the cache lookup and the cache write.
	NoCache bool

	// Check inspects a 200 payload before it is cached. A non-nil error is
	// returned to the caller and the payload is not stored.
	Check func(payload []byte) error
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

func (r Request) cacheKey() string {
	if r.Key != "" {
		return r.Key
	}
	id := r.Path
	if len(r.Query) > 0 {
		id += "?" + r.Query.Encode()
	}
	return cache.Key(strings.ToLower(r.method()), id)
}

func (r Request) shape() string {
	if r.Shape == "" {
		return "rest"
	}
	return r.Shape
}

// Executor runs GitHub API requests through a cache, a transport retry loop
// and a bounded rate-limit wait loop.
//
// Identical concurrent requests are collapsed into one network call that
// outlives any single caller: it is abandoned only when every caller waiting
// on it has given up. Network calls are issued one at a time so two callers cannot both spend
// the last unit of quota. An Executor is safe for concurrent use.
type Executor struct {
	cfg    Config
	http   *resty.Client
	cache  cache.Cache
	clock  clock.Clock
	logger *log.Logger

	group    singleflight.Group
	flightMu sync.Mutex
	flights  map[string]*flight
	netMu    sync.Mutex

	rateMu sync.RWMutex
	rate   httputil.RateLimit
}

// NewExecutor creates an Executor. A nil cache disables caching, a nil clock
// uses the wall clock and a nil logger discards output.
func NewExecutor(cfg Config, c cache.Cache, clk clock.Clock, logger *log.Logger) *Executor {
	cfg = cfg.withDefaults()
	if c == nil {
		c = cache.NewNullCache()
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/vnd.github+json").
		SetHeader("User-Agent", cfg.UserAgent)

	return &Executor{
		cfg:    cfg,
		http:   client,
		cache:  c,
		clock:  clk,
		logger: logger,
	}
}

// Clock returns the executor's clock.
func (e *Executor) Clock() clock.Clock { return e.clock }

// RateLimit returns the budget reported by the most recent response.
func (e *Executor) RateLimit() httputil.RateLimit {
	e.rateMu.RLock()
	defer e.rateMu.RUnlock()
	return e.rate
}

// Execute resolves req to a raw response payload.
//
// A fresh cache entry is returned without network access. Otherwise the
// request is sent; a 403 or 429 with an exhausted budget sleeps until the
// announced reset plus Config.QuotaMargin and starts over, including the
// cache lookup. Failures are *errors.AuthError, *errors.QuotaExhaustedError
// or *errors.UpstreamError, or whatever req.Check returned.
//
// A caller whose ctx ends while others still wait on the same request gets
// an *errors.UpstreamError wrapping ctx.Err(); the shared call carries on for
// the rest and may still populate the cache.
//
// The returned slice is owned by the caller.
func (e *Executor) Execute(ctx context.Context, req Request) ([]byte, error) {
	if e.cfg.Token == "" {
		return nil, &errors.AuthError{Message: "no GitHub token configured (set GITHUB_TOKEN)"}
	}

	key := req.cacheKey()
	if req.NoCache {
		return e.resolve(ctx, req, key)
	}

	f := e.join(ctx, key)
	ch := e.group.DoChan(key, func() (any, error) {
		return e.resolve(f.ctx, req, key)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
		e.leave(key, f)
	case <-ctx.Done():
		if !e.leave(key, f) {
			return nil, &errors.UpstreamError{Cause: ctx.Err()}
		}
		res = <-ch
	}
	if res.Err != nil {
		return nil, res.Err
	}
	payload := res.Val.([]byte)
	if res.Shared {
		payload = append([]byte(nil), payload...)
	}
	return payload, nil
}

// flight is the context shared by every caller waiting on one key. It is
// cancelled once the last of them has gone.
type flight struct {
	ctx    context.Context
	cancel context.CancelFunc
	refs   int
}

func (e *Executor) join(ctx context.Context, key string) *flight {
	e.flightMu.Lock()
	defer e.flightMu.Unlock()
	if e.flights == nil {
		e.flights = make(map[string]*flight)
	}
	f, ok := e.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		e.flights[key] = f
	}
	f.refs++
	return f
}

// leave drops one caller from f and reports whether it was the last one.
func (e *Executor) leave(key string, f *flight) bool {
	e.flightMu.Lock()
	defer e.flightMu.Unlock()
	f.refs--
	if f.refs > 0 {
		return false
	}
	if e.flights[key] == f {
		delete(e.flights, key)
	}
	f.cancel()
	e.group.Forget(key)
	return true
}

func (e *Executor) resolve(ctx context.Context, req Request, key string) ([]byte, error) {
	var (
		waits   int
		waited  time.Duration
		resetAt time.Time
	)
	for {
		if !req.NoCache {
			if payload, ok := e.lookup(ctx, req, key); ok {
				return payload, nil
			}
		}

		payload, err := e.issue(ctx, req)
		if err == nil {
			if !req.NoCache {
				e.store(ctx, req, key, payload)
			}
			if e.cfg.CourtesyDelay > 0 {
				_ = e.clock.Sleep(ctx, e.cfg.CourtesyDelay)
			}
			return payload, nil
		}

		var q *quotaError
		if !stderrors.As(err, &q) {
			return nil, err
		}

		resetAt = q.rate.Reset
		wait := q.rate.Wait(e.clock.Now(), e.cfg.QuotaMargin)
		if waits >= e.cfg.MaxQuotaWaits || waited+wait > e.cfg.MaxQuotaWait {
			e.logger.Error("rate limit exhausted", "waited", waited, "reset", resetAt)
			observability.Quota().OnQuotaExhausted(ctx, waited)
			return nil, &errors.QuotaExhaustedError{Waited: waited, ResetAt: resetAt}
		}

		e.logger.Warn("rate limit reached, waiting for reset", "sleep", wait, "reset", resetAt)
		observability.Quota().OnQuotaWait(ctx, wait, resetAt)
		if err := e.clock.Sleep(ctx, wait); err != nil {
			return nil, &errors.QuotaExhaustedError{Waited: waited, ResetAt: resetAt, Cause: err}
		}
		waits++
		waited += wait
	}
}

func (e *Executor) lookup(ctx context.Context, req Request, key string) ([]byte, bool) {
	entry, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.Warn("cache read failed", "key", key, "error", err)
	}
	if entry.Fresh(e.clock.Now(), e.cfg.TTL) {
		e.logger.Debug("cache hit", "key", key)
		observability.Cache().OnCacheHit(ctx, req.shape())
		return entry.Payload, true
	}
	observability.Cache().OnCacheMiss(ctx, req.shape())
	return nil, false
}

func (e *Executor) store(ctx context.Context, req Request, key string, payload []byte) {
	entry := cache.Entry{Payload: payload, StoredAt: e.clock.Now()}
	if err := e.cache.Set(ctx, key, entry); err != nil {
		e.logger.Warn("cache write failed", "key", key, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, req.shape(), len(payload))
}

// issue sends req, retrying transport failures. Only one request is on the
// wire at a time.
func (e *Executor) issue(ctx context.Context, req Request) ([]byte, error) {
	e.netMu.Lock()
	defer e.netMu.Unlock()

	var payload []byte
	err := httputil.Retry(ctx, e.cfg.Retry, func() error {
		p, err := e.send(ctx, req)
		payload = p
		return err
	}, func(n uint, err error) {
		e.logger.Warn("request failed, retrying", "path", req.Path, "attempt", n+1, "error", err)
	})
	switch {
	case err == nil:
		return payload, nil
	case cache.IsRetryable(err):
		return nil, &errors.UpstreamError{Cause: stderrors.Unwrap(err)}
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return nil, &errors.UpstreamError{Cause: err}
	default:
		return nil, err
	}
}

// send performs one HTTP round trip and classifies the response.
func (e *Executor) send(ctx context.Context, req Request) ([]byte, error) {
	method := req.method()
	host := hostOf(e.cfg.BaseURL)

	r := e.http.R().
		SetContext(ctx).
		SetAuthToken(e.cfg.Token)
	if len(req.Query) > 0 {
		r.SetQueryParamsFromValues(req.Query)
	}
	if req.Body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(req.Body)
	}

	observability.HTTP().OnRequest(ctx, method, host, req.Path)
	start := time.Now()
	resp, err := r.Execute(method, req.Path)
	if err != nil {
		observability.HTTP().OnError(ctx, method, host, req.Path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, cache.Retryable(fmt.Errorf("%s %s: %w", method, req.Path, err))
	}
	status := resp.StatusCode()
	observability.HTTP().OnResponse(ctx, method, host, req.Path, status, time.Since(start))

	rate := httputil.ParseRateLimit(resp.Header())
	if rate.Known {
		e.rateMu.Lock()
		e.rate = rate
		e.rateMu.Unlock()
	}

	body := resp.Body()
	switch {
	case status == http.StatusOK:
		if req.Check != nil {
			if err := req.Check(body); err != nil {
				return nil, err
			}
		}
		return body, nil
	case status == http.StatusUnauthorized:
		return nil, &errors.AuthError{Message: "GitHub rejected the token (401)"}
	case (status == http.StatusForbidden || status == http.StatusTooManyRequests) &&
		(rate.Exhausted() || rate.RetryAfter > 0):
		return nil, &quotaError{status: status, rate: rate}
	default:
		return nil, &errors.UpstreamError{Status: status, Body: string(body)}
	}
}

// quotaError signals a rate-limited response to the wait loop.
type quotaError struct {
	status int
	rate   httputil.RateLimit
}

func (q *quotaError) Error() string {
	return fmt.Sprintf("rate limited (status %d, remaining %d)", q.status, q.rate.Remaining)
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Host
}

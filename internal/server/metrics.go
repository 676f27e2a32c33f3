package server

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/reposcout/pkg/observability"
)

// Metrics collects counters from the observability hooks and the HTTP
// middleware. All methods are safe for concurrent use.
type Metrics struct {
	mu       sync.Mutex
	started  time.Time
	requests map[string]int64 // "GET /search 200"
	counters map[string]int64
	waited   time.Duration
}

// NewMetrics creates an empty Metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		started:  time.Now(),
		requests: make(map[string]int64),
		counters: make(map[string]int64),
	}
}

// Install registers m as the global search, cache, HTTP and quota hooks.
func (m *Metrics) Install() {
	observability.SetSearchHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
	observability.SetQuotaHooks(m)
}

func (m *Metrics) inc(name string) {
	m.mu.Lock()
	m.counters[name]++
	m.mu.Unlock()
}

// OnSearchStart implements observability.SearchHooks.
func (m *Metrics) OnSearchStart(context.Context, string) { m.inc("searches_started") }

// OnSearchComplete implements observability.SearchHooks.
func (m *Metrics) OnSearchComplete(_ context.Context, _ string, fetched, kept int, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.counters["searches_failed"]++
		return
	}
	m.counters["searches_completed"]++
	m.counters["candidates_fetched"] += int64(fetched)
	m.counters["records_kept"] += int64(kept)
}

// OnCacheHit implements observability.CacheHooks.
func (m *Metrics) OnCacheHit(_ context.Context, shape string) { m.inc("cache_hits_" + shape) }

// OnCacheMiss implements observability.CacheHooks.
func (m *Metrics) OnCacheMiss(_ context.Context, shape string) { m.inc("cache_misses_" + shape) }

// OnCacheSet implements observability.CacheHooks.
func (m *Metrics) OnCacheSet(_ context.Context, shape string, _ int) { m.inc("cache_sets_" + shape) }

// OnRequest implements observability.HTTPHooks.
func (m *Metrics) OnRequest(context.Context, string, string, string) { m.inc("upstream_requests") }

// OnResponse implements observability.HTTPHooks.
func (m *Metrics) OnResponse(_ context.Context, _, _, _ string, status int, _ time.Duration) {
	m.inc("upstream_responses_" + strconv.Itoa(status))
}

// OnError implements observability.HTTPHooks.
func (m *Metrics) OnError(context.Context, string, string, string, error) { m.inc("upstream_errors") }

// OnQuotaWait implements observability.QuotaHooks.
func (m *Metrics) OnQuotaWait(_ context.Context, wait time.Duration, _ time.Time) {
	m.mu.Lock()
	m.counters["quota_waits"]++
	m.waited += wait
	m.mu.Unlock()
}

// OnQuotaExhausted implements observability.QuotaHooks.
func (m *Metrics) OnQuotaExhausted(context.Context, time.Duration) { m.inc("quota_exhausted") }

// Middleware counts served requests by method, route pattern and status.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := "/unknown"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			pattern = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		key := r.Method + " " + pattern + " " + strconv.Itoa(status)
		m.mu.Lock()
		m.requests[key]++
		m.mu.Unlock()
	})
}

// Snapshot is a point-in-time copy of the collected metrics.
type Snapshot struct {
	Uptime        string           `json:"uptime"`
	Requests      map[string]int64 `json:"requests"`
	Counters      map[string]int64 `json:"counters"`
	QuotaWaitTime string           `json:"quota_wait_time"`
}

// Snapshot copies the current values.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{
		Uptime:        time.Since(m.started).Round(time.Second).String(),
		Requests:      make(map[string]int64, len(m.requests)),
		Counters:      make(map[string]int64, len(m.counters)),
		QuotaWaitTime: m.waited.String(),
	}
	for k, v := range m.requests {
		s.Requests[k] = v
	}
	for k, v := range m.counters {
		s.Counters[k] = v
	}
	return s
}

// Handler serves the snapshot as JSON.
func (m *Metrics) Handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, m.Snapshot())
}

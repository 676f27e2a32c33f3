package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	mock_search "github.com/matzehuels/reposcout/internal/mocks/search"
	"github.com/matzehuels/reposcout/pkg/clock"
	"github.com/matzehuels/reposcout/pkg/errors"
	"github.com/matzehuels/reposcout/pkg/httputil"
	"github.com/matzehuels/reposcout/pkg/search"
	"github.com/matzehuels/reposcout/pkg/storage"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func commitAgo(d time.Duration) *time.Time {
	t := now.Add(-d)
	return &t
}

func sampleCandidates() []search.Candidate {
	return []search.Candidate{
		{Name: "small", Owner: "o", Stars: 5, LastCommit: commitAgo(24 * time.Hour), URL: "https://github.com/o/small"},
		{Name: "big", Owner: "o", Stars: 500, LastCommit: commitAgo(24 * time.Hour), URL: "https://github.com/o/big"},
		{Name: "stale", Owner: "o", Stars: 900, LastCommit: commitAgo(3 * 365 * 24 * time.Hour), URL: "https://github.com/o/stale"},
		{Name: "empty", Owner: "o", Stars: 700, URL: "https://github.com/o/empty"},
	}
}

type memStore struct {
	mu   sync.Mutex
	runs map[uuid.UUID]*storage.Run
}

func newMemStore() *memStore { return &memStore{runs: make(map[uuid.UUID]*storage.Run)} }

func (s *memStore) SaveRun(_ context.Context, run *storage.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

func (s *memStore) Run(_ context.Context, id uuid.UUID) (*storage.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run, ok := s.runs[id]; ok {
		return run, nil
	}
	return nil, errors.New(errors.ErrCodeNotFound, "run %s not found", id)
}

func (s *memStore) Runs(context.Context, int) ([]storage.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]storage.Run, 0, len(s.runs))
	for _, r := range s.runs {
		run := *r
		run.Records = nil
		out = append(out, run)
	}
	return out, nil
}

func (s *memStore) Close() error { return nil }

func newTestServer(t *testing.T, src search.Source, store storage.Store) *Server {
	t.Helper()
	return New(Config{}, Deps{
		Sources:      map[string]search.Source{"graphql": src, "rest": src},
		DefaultShape: "graphql",
		NumResults:   10,
		Store:        store,
		Metrics:      NewMetrics(),
		Clock:        clock.NewFake(now),
	})
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestSearch(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mock_search.NewMockSource(ctrl)
	src.EXPECT().Fetch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, d search.Descriptor) ([]search.Candidate, error) {
			assert.Equal(t, "go", d.Language)
			assert.Equal(t, []string{"cli", "tui"}, d.Topics)
			require.NotNil(t, d.MinStars)
			assert.Equal(t, 10, *d.MinStars)
			assert.Equal(t, 1, d.Years)
			return sampleCandidates(), nil
		})

	s := newTestServer(t, src, nil)
	rec := get(t, s, "/search?language=Go&topics=tui,cli&min_stars=10&years=1&order=stars")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	var resp SearchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "language:go topic:cli topic:tui", resp.Query)
	assert.Equal(t, "graphql", resp.Shape)
	assert.Equal(t, 4, resp.Fetched)
	assert.Equal(t, 1, resp.Matched)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "big", resp.Results[0].Name)
	assert.Empty(t, resp.RunID)
}

func TestSearchStarRange(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mock_search.NewMockSource(ctrl)
	src.EXPECT().Fetch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, d search.Descriptor) ([]search.Candidate, error) {
			require.NotNil(t, d.MinStars)
			require.NotNil(t, d.MaxStars)
			assert.Equal(t, 1, *d.MinStars)
			assert.Equal(t, 600, *d.MaxStars)
			return sampleCandidates(), nil
		})

	rec := get(t, newTestServer(t, src, nil), "/search?language=go&stars=1-600&shape=rest")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp SearchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "rest", resp.Shape)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "small", resp.Results[0].Name, "upstream order is kept by default")
}

func TestSearchBadRequests(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"missing language", "/search?topics=cli"},
		{"unknown parameter", "/search?language=go&colour=blue"},
		{"non-numeric stars", "/search?language=go&min_stars=many"},
		{"bad star range", "/search?language=go&stars=lots"},
		{"stars with min", "/search?language=go&stars=%3E10&min_stars=5"},
		{"min above max", "/search?language=go&min_stars=10&max_stars=5"},
		{"unknown shape", "/search?language=go&shape=soap"},
		{"unknown order", "/search?language=go&order=random"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			src := mock_search.NewMockSource(ctrl)
			src.EXPECT().Fetch(gomock.Any(), gomock.Any()).Times(0)

			rec := get(t, newTestServer(t, src, nil), tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.NotEmpty(t, body.Error.Code)
			assert.NotEmpty(t, body.Error.RequestID)
		})
	}
}

func TestSearchUpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		cands  []search.Candidate
		status int
		code   string
	}{
		{"auth", &errors.AuthError{Message: "no token"}, nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"quota", &errors.QuotaExhaustedError{Waited: time.Minute}, nil, http.StatusServiceUnavailable, "RATE_LIMITED"},
		{"upstream", &errors.UpstreamError{Status: 500}, nil, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"empty", nil, nil, http.StatusNotFound, "EMPTY_RESULT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			src := mock_search.NewMockSource(ctrl)
			src.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(tt.cands, tt.err)

			rec := get(t, newTestServer(t, src, nil), "/search?language=go")
			assert.Equal(t, tt.status, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestSearchSaveAndRuns(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mock_search.NewMockSource(ctrl)
	src.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(sampleCandidates(), nil)

	store := newMemStore()
	s := newTestServer(t, src, store)

	rec := get(t, s, "/search?language=go&save=true")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp SearchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.RunID)

	rec = get(t, s, "/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []storage.Run
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, resp.RunID, runs[0].ID.String())

	rec = get(t, s, "/runs/"+resp.RunID)
	require.Equal(t, http.StatusOK, rec.Code)
	var run storage.Run
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&run))
	assert.Len(t, run.Records, 3)
	assert.Equal(t, "language:go", run.Query)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/runs/"+uuid.NewString()).Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/runs/not-a-uuid").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/runs?limit=-1").Code)
}

func TestRunsWithoutStore(t *testing.T) {
	s := newTestServer(t, mock_search.NewMockSource(gomock.NewController(t)), nil)
	rec := get(t, s, "/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestHealth(t *testing.T) {
	s := New(Config{}, Deps{
		Clock: clock.NewFake(now),
		RateLimit: func() httputil.RateLimit {
			return httputil.RateLimit{Limit: 5000, Remaining: 0, Reset: now.Add(time.Minute), Known: true}
		},
	})
	rec := get(t, s, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "degraded", resp.Status)
	require.NotNil(t, resp.RateLimit)
	assert.Equal(t, 5000, resp.RateLimit.Limit)
	assert.True(t, resp.Timestamp.Equal(now))
}

func TestVersionAndNotFound(t *testing.T) {
	s := New(Config{}, Deps{})

	rec := get(t, s, "/version")
	require.Equal(t, http.StatusOK, rec.Code)
	var v VersionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	assert.NotEmpty(t, v.Version)

	rec = get(t, s, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/version", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	s := New(Config{}, Deps{})
	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestRunShutsDownOnCancel(t *testing.T) {
	s := New(Config{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second}, Deps{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

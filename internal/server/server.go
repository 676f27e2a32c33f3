// Package server exposes repository search over HTTP.
//
// Routes:
//
//	GET /search      run a search; query parameters mirror search.Descriptor
//	GET /runs        list saved runs
//	GET /runs/{id}   one saved run with its records
//	GET /health      liveness and rate-limit budget
//	GET /version     build information
//	GET /metrics     counters collected from observability hooks
package server

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/reposcout/pkg/clock"
	"github.com/matzehuels/reposcout/pkg/errors"
	"github.com/matzehuels/reposcout/pkg/httputil"
	"github.com/matzehuels/reposcout/pkg/search"
	"github.com/matzehuels/reposcout/pkg/storage"
)

// Config configures the listener.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Deps are the collaborators a Server serves from.
type Deps struct {
	// Sources maps shape names ("graphql", "rest") to candidate sources.
	Sources map[string]search.Source

	// DefaultShape is used when a request names no shape.
	DefaultShape string

	// Options and NumResults are defaults for requests that omit them.
	Options    search.Options
	NumResults int

	Store     storage.Store                 // nil disables saving and /runs
	RateLimit func() httputil.RateLimit      // optional, reported by /health
	Metrics   *Metrics                      // nil disables /metrics
	Clock     clock.Clock
	Logger    *log.Logger
}

// Server is the HTTP front end.
type Server struct {
	cfg       Config
	deps      Deps
	searchers map[string]*search.Searcher
	router    *chi.Mux
	logger    *log.Logger
}

// New creates a Server and registers its routes.
func New(cfg Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard)
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Store == nil {
		deps.Store = storage.NopStore{}
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		cfg:       cfg,
		deps:      deps,
		searchers: make(map[string]*search.Searcher, len(deps.Sources)),
		router:    chi.NewRouter(),
		logger:    deps.Logger,
	}
	for shape, src := range deps.Sources {
		s.searchers[shape] = search.NewSearcher(src, deps.Clock, deps.Logger)
	}

	s.router.Use(middleware.RealIP)
	s.router.Use(RequestID)
	if deps.Metrics != nil {
		s.router.Use(deps.Metrics.Middleware)
	}
	s.router.Use(requestLogger(deps.Logger))
	s.router.Use(middleware.Recoverer)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errors.New(errors.ErrCodeNotFound, "no route for %s", r.URL.Path))
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErrorStatus(w, r, http.StatusMethodNotAllowed, errors.New(errors.ErrCodeInvalidInput, "method %s not allowed", r.Method))
	})

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Get("/search", s.handleSearch)
	s.router.Get("/runs", s.handleRuns)
	s.router.Get("/runs/{id}", s.handleRun)
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/version", handleVersion)
	if s.deps.Metrics != nil {
		s.router.Get("/metrics", s.deps.Metrics.Handler)
	}
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

package server

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"

	"github.com/matzehuels/reposcout/pkg/buildinfo"
	"github.com/matzehuels/reposcout/pkg/errors"
	"github.com/matzehuels/reposcout/pkg/search"
	"github.com/matzehuels/reposcout/pkg/storage"
)

// searchParams are the query parameters of GET /search.
type searchParams struct {
	search.Descriptor `mapstructure:",squash"`

	Stars      string `mapstructure:"stars"` // ">100", "<500" or "100-500"
	Order      string `mapstructure:"order"`
	Precedence string `mapstructure:"precedence"`
	Shape      string `mapstructure:"shape"`
	Save       bool   `mapstructure:"save"`
}

// listParams accept repeated or comma-separated values.
var listParams = map[string]bool{"languages": true, "topics": true}

func decodeSearchParams(q url.Values) (searchParams, error) {
	input := make(map[string]any, len(q))
	for key, vals := range q {
		if listParams[key] {
			var items []string
			for _, v := range vals {
				for _, item := range strings.Split(v, ",") {
					if item = strings.TrimSpace(item); item != "" {
						items = append(items, item)
					}
				}
			}
			input[key] = items
			continue
		}
		if len(vals) > 0 {
			input[key] = vals[len(vals)-1]
		}
	}

	var p searchParams
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &p,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return p, errors.Wrap(errors.ErrCodeInternal, err, "build decoder")
	}
	if err := dec.Decode(input); err != nil {
		return p, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid query parameters")
	}
	if p.Stars != "" {
		if p.MinStars != nil || p.MaxStars != nil {
			return p, errors.New(errors.ErrCodeInvalidInput, "stars cannot be combined with min_stars or max_stars")
		}
		minStars, maxStars, err := search.ParseStarRange(p.Stars)
		if err != nil {
			return p, err
		}
		p.MinStars, p.MaxStars = minStars, maxStars
	}
	return p, nil
}

// SearchResponse is the body of a successful GET /search.
type SearchResponse struct {
	RunID   string          `json:"run_id,omitempty"`
	Query   string          `json:"query"`
	Shape   string          `json:"shape"`
	Fetched int             `json:"fetched"`
	Matched int             `json:"matched"`
	At      time.Time       `json:"at"`
	Results []search.Record `json:"results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	p, err := decodeSearchParams(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	shape := p.Shape
	if shape == "" {
		shape = s.deps.DefaultShape
	}
	searcher, ok := s.searchers[shape]
	if !ok {
		writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "unknown shape %q", shape))
		return
	}

	opts := s.deps.Options
	if p.Order != "" {
		if opts.Order, err = search.ParseOrder(p.Order); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if p.Precedence != "" {
		if opts.Precedence, err = search.ParsePrecedence(p.Precedence); err != nil {
			writeError(w, r, err)
			return
		}
	}

	d := p.Descriptor
	if d.NumResults == 0 && s.deps.NumResults > 0 {
		d.NumResults = s.deps.NumResults
	}

	res, err := searcher.Search(r.Context(), d, opts)
	if err != nil {
		s.logger.Warn("search failed", "query", d.Normalize().Query(), "error", err, "request_id", GetRequestID(r.Context()))
		writeError(w, r, err)
		return
	}

	resp := SearchResponse{
		Query:   res.Descriptor.Query(),
		Shape:   shape,
		Fetched: res.Fetched(),
		Matched: res.Matched,
		At:      res.At,
		Results: res.Records,
	}
	if resp.Results == nil {
		resp.Results = []search.Record{}
	}
	if p.Save {
		run := storage.NewRun(res, shape)
		if err := s.deps.Store.SaveRun(r.Context(), run); err != nil {
			s.logger.Error("save run failed", "error", err)
			writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "save run"))
			return
		}
		resp.RunID = run.ID.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	runs, err := s.deps.Store.Runs(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if runs == nil {
		runs = []storage.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid run id"))
		return
	}
	run, err := s.deps.Store.Run(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string     `json:"status"`
	Version   string     `json:"version"`
	Timestamp time.Time  `json:"timestamp"`
	RateLimit *rateLimit `json:"rate_limit,omitempty"`
}

type rateLimit struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Version:   buildinfo.Version,
		Timestamp: s.deps.Clock.Now().UTC(),
	}
	if s.deps.RateLimit != nil {
		if rl := s.deps.RateLimit(); rl.Known {
			resp.RateLimit = &rateLimit{Limit: rl.Limit, Remaining: rl.Remaining, Reset: rl.Reset}
			if rl.Exhausted() {
				resp.Status = "degraded"
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// VersionResponse is the body of GET /version.
type VersionResponse struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{
		Version: buildinfo.Version,
		Commit:  buildinfo.Commit,
		Date:    buildinfo.Date,
	})
}

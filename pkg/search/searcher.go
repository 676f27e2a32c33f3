package search

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/reposcout/pkg/clock"
	"github.com/matzehuels/reposcout/pkg/errors"
	"github.com/matzehuels/reposcout/pkg/observability"
)

// Options are the caller-selected policies of a search.
type Options struct {
	Order      Order
	Precedence Precedence
}

// Result is the outcome of a search.
type Result struct {
	Descriptor Descriptor  `json:"query"`
	Records    []Record    `json:"results"`
	Candidates []Candidate `json:"-"`       // Everything upstream returned, unfiltered
	Matched    int         `json:"matched"` // Survivors before truncation
	At         time.Time   `json:"at"`
}

// Fetched returns the number of upstream candidates.
func (r *Result) Fetched() int { return len(r.Candidates) }

// Searcher runs descriptors against a Source.
type Searcher struct {
	source Source
	clock  clock.Clock
	logger *log.Logger
}

// NewSearcher creates a Searcher. A nil clock uses the wall clock and a nil
// logger discards output.
func NewSearcher(src Source, clk clock.Clock, logger *log.Logger) *Searcher {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Searcher{source: src, clock: clk, logger: logger}
}

// Search validates d, fetches candidates and filters them.
//
// It fails with *errors.EmptyResultError when upstream returned no
// candidates at all. When candidates were fetched but none survived the
// filters, Records is empty and err is nil.
func (s *Searcher) Search(ctx context.Context, d Descriptor, opts Options) (res *Result, err error) {
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return nil, err
	}

	query := d.Query()
	start := time.Now()
	observability.Search().OnSearchStart(ctx, query)
	defer func() {
		fetched, kept := 0, 0
		if res != nil {
			fetched, kept = res.Fetched(), len(res.Records)
		}
		observability.Search().OnSearchComplete(ctx, query, fetched, kept, time.Since(start), err)
	}()

	s.logger.Debug("searching", "query", query, "num_results", d.NumResults)
	cands, err := s.source.Fetch(ctx, d)
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return nil, &errors.EmptyResultError{Query: query}
	}

	now := s.clock.Now()
	crit := d.Criteria(opts)
	for _, c := range cands {
		if reason := Reject(c, crit, now); reason != "" {
			s.logger.Debug("skipping repository", "repo", c.FullName(), "reason", reason)
		}
	}

	matched := Matching(cands, crit, now)
	records := matched
	if len(records) > d.NumResults {
		records = records[:d.NumResults]
	}
	s.logger.Debug("search complete", "fetched", len(cands), "matched", len(matched), "returned", len(records))

	return &Result{
		Descriptor: d,
		Records:    records,
		Candidates: cands,
		Matched:    len(matched),
		At:         now,
	}, nil
}

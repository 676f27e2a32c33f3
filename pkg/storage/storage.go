package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/reposcout/pkg/errors"
	"github.com/matzehuels/reposcout/pkg/search"
)

// Run is one persisted search.
type Run struct {
	ID       uuid.UUID       `json:"id"`
	Query    string          `json:"query"`
	Identity string          `json:"identity"`
	Shape    string          `json:"shape"`
	Fetched  int             `json:"fetched"`
	Matched  int             `json:"matched"`
	At       time.Time       `json:"at"`
	Records  []search.Record `json:"records,omitempty"`
}

// NewRun builds a Run with a fresh ID from a search result.
func NewRun(res *search.Result, shape string) *Run {
	return &Run{
		ID:       uuid.New(),
		Query:    res.Descriptor.Query(),
		Identity: res.Descriptor.Identity(),
		Shape:    shape,
		Fetched:  res.Fetched(),
		Matched:  res.Matched,
		At:       res.At.UTC(),
		Records:  res.Records,
	}
}

// Store persists runs. Implementations are safe for concurrent use.
type Store interface {
	// SaveRun writes run and its records, replacing a run with the same ID.
	SaveRun(ctx context.Context, run *Run) error

	// Run returns the run with the given ID including its records. It fails
	// with a NOT_FOUND error when no such run exists.
	Run(ctx context.Context, id uuid.UUID) (*Run, error)

	// Runs returns up to limit runs, most recent first, without records.
	Runs(ctx context.Context, limit int) ([]Run, error)

	// Close releases the underlying connection.
	Close() error
}

// DefaultListLimit is used when Runs is called with a non-positive limit.
const DefaultListLimit = 20

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

func notFound(id uuid.UUID) error {
	return errors.New(errors.ErrCodeNotFound, "run %s not found", id)
}

// NopStore discards runs.
type NopStore struct{}

// SaveRun does nothing.
func (NopStore) SaveRun(context.Context, *Run) error { return nil }

// Run always reports NOT_FOUND.
func (NopStore) Run(_ context.Context, id uuid.UUID) (*Run, error) { return nil, notFound(id) }

// Runs returns nothing.
func (NopStore) Runs(context.Context, int) ([]Run, error) { return nil, nil }

// Close does nothing.
func (NopStore) Close() error { return nil }

package search

import "context"

//go:generate mockgen -source=source.go -destination=../../internal/mocks/search/mock_source.go -package=mock_search

// Source fetches raw candidates for a descriptor.
type Source interface {
	Fetch(ctx context.Context, d Descriptor) ([]Candidate, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, d Descriptor) ([]Candidate, error)

// Fetch calls f(ctx, d).
func (f SourceFunc) Fetch(ctx context.Context, d Descriptor) ([]Candidate, error) {
	return f(ctx, d)
}

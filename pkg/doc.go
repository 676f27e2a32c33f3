// Package pkg provides the core libraries for Reposcout repository discovery.
//
// # Overview
//
// Reposcout searches GitHub for repositories by language and topic and keeps
// the ones that are still maintained. The pkg directory is organized into
// these areas:
//
//  1. [search] - Search descriptors, the filter pipeline and the Searcher
//  2. [integrations] - The rate-aware query executor and the GitHub client
//  3. [cache] - Response caches (memory, file, Redis)
//  4. [storage] - Saved search runs (PostgreSQL, MySQL, MongoDB)
//  5. [export] - CSV, JSON, YAML and TOML writers
//
// Supporting packages: [errors] (coded errors), [validation], [clock],
// [httputil] (retry and rate-limit headers), [observability] (hooks) and
// [buildinfo].
//
// # Architecture
//
// The typical data flow:
//
//	search.Descriptor
//	         ↓
//	    [integrations/github] (GraphQL or REST query shape)
//	         ↓
//	    [integrations] Executor (cache, quota waits, retries)
//	         ↓
//	    []search.Candidate
//	         ↓
//	    [search] filter pipeline (stars, recency, order, truncation)
//	         ↓
//	    []search.Record → table, [export], [storage]
//
// # Quick Start
//
//	exec := integrations.NewExecutor(integrations.Config{Token: token}, cache.NewMemoryCache(), nil, nil)
//	client := github.NewClient(exec, nil)
//	searcher := search.NewSearcher(client.Source(github.ShapeGraphQL), nil, nil)
//
//	res, err := searcher.Search(ctx, search.Descriptor{
//	    Language: "go",
//	    Topics:   []string{"cli"},
//	    MinStars: search.IntPtr(100),
//	    Years:    1,
//	}, search.Options{})
//
// [search]: https://pkg.go.dev/github.com/matzehuels/reposcout/pkg/search
// [integrations]: https://pkg.go.dev/github.com/matzehuels/reposcout/pkg/integrations
// [integrations/github]: https://pkg.go.dev/github.com/matzehuels/reposcout/pkg/integrations/github
// [cache]: https://pkg.go.dev/github.com/matzehuels/reposcout/pkg/cache
// [storage]: https://pkg.go.dev/github.com/matzehuels/reposcout/pkg/storage
// [export]: https://pkg.go.dev/github.com/matzehuels/reposcout/pkg/export
// [errors]: https://pkg.go.dev/github.com/matzehuels/reposcout/pkg/errors
// [validation]: https://pkg.go.dev/github.com/matzehuels/reposcout/pkg/validation
// [clock]: https://pkg.go.dev/github.com/matzehuels/reposcout/pkg/clock
// [httputil]: https://pkg.go.dev/github.com/matzehuels/reposcout/pkg/httputil
// [observability]: https://pkg.go.dev/github.com/matzehuels/reposcout/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/reposcout/pkg/buildinfo
package pkg

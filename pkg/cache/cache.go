// Package cache stores raw query payloads keyed by query identity.
//
// Entries are never evicted by the query executor. Freshness is decided by
// the reader, against its own clock, with [Entry.Fresh]: an entry stored at
// time T is fresh while now-T < ttl. A stale entry is simply ignored and
// overwritten by the next successful fetch.
//
// # Implementations
//
//   - [MemoryCache]: process-local map guarded by a RWMutex (HTTP service,
//     tests)
//   - [FileCache]: one JSON file per key under a directory (CLI, survives
//     between runs)
//   - [RedisCache]: shared cache for several service instances
//   - [NullCache]: stores nothing (--no-cache)
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long a stored payload counts as fresh.
const DefaultTTL = 300 * time.Second

// Entry is a cached payload and the time it was stored.
type Entry struct {
	Payload  []byte    `json:"payload"`
	StoredAt time.Time `json:"stored_at"`
}

// Fresh reports whether the entry is still usable at now.
// The boundary is exclusive: an entry exactly ttl old is stale.
func (e *Entry) Fresh(now time.Time, ttl time.Duration) bool {
	if e == nil {
		return false
	}
	return now.Sub(e.StoredAt) < ttl
}

// Cache stores entries by key. Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the entry stored under key, or (nil, nil) if there is none.
	Get(ctx context.Context, key string) (*Entry, error)

	// Set stores or overwrites the entry under key.
	Set(ctx context.Context, key string, entry Entry) error

	// Delete removes the entry under key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// Clearer is implemented by caches that can drop every entry at once.
type Clearer interface {
	Clear(ctx context.Context) error
}

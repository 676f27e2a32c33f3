package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestEntryFresh(t *testing.T) {
	e := &Entry{Payload: []byte("x"), StoredAt: t0}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"just stored", t0, true},
		{"one second before ttl", t0.Add(DefaultTTL - time.Second), true},
		{"exactly ttl", t0.Add(DefaultTTL), false},
		{"after ttl", t0.Add(DefaultTTL + time.Second), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Fresh(tt.now, DefaultTTL); got != tt.want {
				t.Errorf("Fresh() = %v, want %v", got, tt.want)
			}
		})
	}

	var nilEntry *Entry
	if nilEntry.Fresh(t0, DefaultTTL) {
		t.Error("nil entry should never be fresh")
	}
}

func testCacheContract(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()

	got, err := c.Get(ctx, "graphql:missing")
	if err != nil {
		t.Fatalf("Get missing: %v", err)
	}
	if got != nil {
		t.Fatalf("Get missing = %+v, want nil", got)
	}

	if err := c.Set(ctx, "graphql:q", Entry{Payload: []byte(`{"a":1}`), StoredAt: t0}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err = c.Get(ctx, "graphql:q")
	if err != nil || got == nil {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if string(got.Payload) != `{"a":1}` || !got.StoredAt.Equal(t0) {
		t.Errorf("Get = %q at %v", got.Payload, got.StoredAt)
	}

	// Overwrite
	later := t0.Add(10 * time.Minute)
	if err := c.Set(ctx, "graphql:q", Entry{Payload: []byte(`{"a":2}`), StoredAt: later}); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, _ = c.Get(ctx, "graphql:q")
	if got == nil || string(got.Payload) != `{"a":2}` || !got.StoredAt.Equal(later) {
		t.Errorf("overwrite not visible: %+v", got)
	}

	if err := c.Delete(ctx, "graphql:q"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := c.Get(ctx, "graphql:q"); got != nil {
		t.Error("entry still present after Delete")
	}
	if err := c.Delete(ctx, "graphql:q"); err != nil {
		t.Errorf("Delete missing: %v", err)
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	testCacheContract(t, c)
}

func TestMemoryCacheCopiesPayload(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	payload := []byte("abc")
	_ = c.Set(ctx, "k", Entry{Payload: payload, StoredAt: t0})
	payload[0] = 'z'

	got, _ := c.Get(ctx, "k")
	if string(got.Payload) != "abc" {
		t.Errorf("stored payload was aliased: %q", got.Payload)
	}
	got.Payload[0] = 'y'
	again, _ := c.Get(ctx, "k")
	if string(again.Payload) != "abc" {
		t.Errorf("returned payload was aliased: %q", again.Payload)
	}
}

func TestMemoryCacheConcurrent(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Set(ctx, "k", Entry{Payload: []byte("v"), StoredAt: t0})
			_, _ = c.Get(ctx, "k")
		}()
	}
	wg.Wait()

	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", c.Len())
	}
}

func TestFileCache(t *testing.T) {
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()
	testCacheContract(t, c)
}

func TestFileCacheCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}

	path := c.path("rest:q")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := c.Get(ctx, "rest:q")
	if err != nil || got != nil {
		t.Errorf("Get corrupt = %v, %v; want miss", got, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupt entry should be removed")
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := NewFileCache(dir)
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, Entry{Payload: []byte(k), StoredAt: t0}); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("dir has %d entries after Clear", len(entries))
	}
	if got, _ := c.Get(ctx, "a"); got != nil {
		t.Error("entry survived Clear")
	}
}

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", Entry{Payload: []byte("value"), StoredAt: t0}); err != nil {
		t.Errorf("Set error: %v", err)
	}
	got, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != nil {
		t.Error("NullCache should not store data")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestRedisCache(t *testing.T) {
	url := os.Getenv("REPOSCOUT_TEST_REDIS_URL")
	if url == "" {
		t.Skip("REPOSCOUT_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	c, err := NewRedisCache(ctx, RedisConfig{URL: url, Prefix: "reposcout-test:"})
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer c.Close()
	defer c.Clear(ctx)

	testCacheContract(t, c)
}

func TestNewRedisCacheBadURL(t *testing.T) {
	if _, err := NewRedisCache(context.Background(), RedisConfig{URL: "not-a-url"}); err == nil {
		t.Error("expected error for invalid redis URL")
	}
}

func TestKeyAndHash(t *testing.T) {
	if got := Key("graphql", "language:go"); got != "graphql:language:go" {
		t.Errorf("Key() = %q", got)
	}

	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}

	base := errors.New("connection reset")
	err := Retryable(base)
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}
	if err.Error() != base.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}
	if !errors.Is(err, base) {
		t.Error("wrapped error should unwrap to the cause")
	}
	if IsRetryable(base) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

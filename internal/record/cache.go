package record

import (
	"context"
	"sync"
	"time"
)

// DefaultCacheTTL bounds how stale a cached Load result may get. The
// backing store is shared external state, so a short window keeps
// other writers' rows from hiding for too long.
const DefaultCacheTTL = 60 * time.Second

// CachedStore wraps a Store with a time-boxed read cache. Append
// invalidates the cache before returning, so the next Load within the
// same process reflects the new row immediately. There is no
// cross-process coherence.
//
// CachedStore is safe for concurrent use: the TUI loads data from
// command goroutines while the update loop appends and invalidates.
type CachedStore struct {
	inner Store
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	cached  []Record
	loaded  time.Time
	hasData bool
}

// CacheOption configures a CachedStore.
type CacheOption func(*CachedStore)

// WithCacheClock replaces the clock used for TTL checks in tests.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *CachedStore) { c.now = now }
}

// NewCachedStore wraps inner with a read cache. ttl <= 0 selects
// DefaultCacheTTL.
func NewCachedStore(inner Store, ttl time.Duration, opts ...CacheOption) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &CachedStore{inner: inner, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load returns the cached dataset while it is fresh, otherwise reads
// through to the backend. Failed reads are never cached. The lock is
// held across the backend read, so concurrent loads serialize instead
// of hitting the backend twice.
func (c *CachedStore) Load(ctx context.Context) ([]Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hasData && c.now().Sub(c.loaded) < c.ttl {
		return copyRecords(c.cached), nil
	}

	records, err := c.inner.Load(ctx)
	if err != nil {
		return nil, err
	}
	c.cached = copyRecords(records)
	c.loaded = c.now()
	c.hasData = true
	return copyRecords(records), nil
}

// Append writes through to the backend and invalidates the cache on
// success, guaranteeing read-after-write within this process.
func (c *CachedStore) Append(ctx context.Context, r Record) error {
	if err := c.inner.Append(ctx, r); err != nil {
		return err
	}
	c.Invalidate()
	return nil
}

// Invalidate drops the cached dataset.
func (c *CachedStore) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.hasData = false
	c.mu.Unlock()
	c.inner.Invalidate()
}

func copyRecords(in []Record) []Record {
	out := make([]Record, len(in))
	copy(out, in)
	return out
}

// Package memcache provides the in-memory implementation of analysis.Cache:
// TTL expiry with lazy eviction, plus single-flight coordination so
// concurrent misses for the same fingerprint trigger one upstream
// computation.
package memcache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/linnemanlabs/issuelens/internal/analysis"
)

// DefaultTTL is how long an entry stays live.
const DefaultTTL = 3600 * time.Second

type entry struct {
	report    *analysis.Report
	createdAt time.Time
	expiresAt time.Time
}

// Cache holds analysis reports in memory. Entries are read-only after
// creation and evicted lazily when their expiry is observed to have passed.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	group   singleflight.Group

	// now is injectable so expiry is testable without real time.
	now func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithNow replaces the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache with the given TTL. Non-positive ttl means DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the live entry for key. Expired entries are treated
// as absent and removed.
func (c *Cache) Get(_ context.Context, key string) (*analysis.Report, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		// re-check under the write lock, another goroutine may have replaced it
		if cur, still := c.entries[key]; still && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return cloneReport(e.report), true
}

// Put stores a copy of rep under key with the configured TTL.
func (c *Cache) Put(_ context.Context, key string, rep *analysis.Report) {
	now := c.now()
	c.mu.Lock()
	c.entries[key] = entry{
		report:    cloneReport(rep),
		createdAt: now,
		expiresAt: now.Add(c.ttl),
	}
	c.mu.Unlock()
}

// Do implements the single-flight contract: at most one compute in flight
// per key; every concurrent caller observes that computation's outcome.
// Successful results are stored; errors are shared but never cached.
func (c *Cache) Do(ctx context.Context, key string, compute func(ctx context.Context) (*analysis.Report, error)) (*analysis.Report, bool, error) {
	if rep, ok := c.Get(ctx, key); ok {
		return rep, true, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// a just-finished flight may have populated the entry between our
		// miss and acquiring the flight
		if rep, ok := c.Get(ctx, key); ok {
			return rep, nil
		}
		rep, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.Put(ctx, key, rep)
		return rep, nil
	})
	if err != nil {
		return nil, false, err
	}
	// clone per caller so waiters that shared the flight never alias
	return cloneReport(v.(*analysis.Report)), false, nil
}

// Clear drops every entry.
func (c *Cache) Clear(_ context.Context) {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len reports the number of stored entries, live or expired.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func cloneReport(r *analysis.Report) *analysis.Report {
	cp := *r
	cp.SuggestedLabels = append([]string(nil), r.SuggestedLabels...)
	return &cp
}

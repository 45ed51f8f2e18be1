package analysis

import "context"

// Cache is the keyed store mapping a request fingerprint to a computed
// report. Implementations own all synchronization, TTL expiry, and the
// single-flight guarantee: no other component touches entries directly.
type Cache interface {
	// Get returns the live entry for key, or false if absent or expired.
	Get(ctx context.Context, key string) (*Report, bool)

	// Put stores a report under key with the implementation's TTL.
	Put(ctx context.Context, key string, rep *Report)

	// Do returns the cached report for key, or runs compute to produce
	// one. Concurrent callers for the same key share a single compute
	// invocation and its outcome. The bool is true only when the report
	// was served from an existing entry. Errors are never stored.
	Do(ctx context.Context, key string, compute func(ctx context.Context) (*Report, error)) (*Report, bool, error)

	// Clear drops every entry.
	Clear(ctx context.Context)
}

// Disabled returns a no-op cache that always misses, for deployments that
// need always-fresh data.
func Disabled() Cache { return disabledCache{} }

type disabledCache struct{}

func (disabledCache) Get(context.Context, string) (*Report, bool)    { return nil, false }
func (disabledCache) Put(context.Context, string, *Report)           {}
func (disabledCache) Clear(context.Context)                          {}
func (disabledCache) Do(ctx context.Context, _ string, compute func(ctx context.Context) (*Report, error)) (*Report, bool, error) {
	rep, err := compute(ctx)
	return rep, false, err
}

package gate

import (
	"context"
	"sync"
	"time"
)

// CachedResolver wraps a SubjectResolver with TTL-based caching.
// This avoids hitting the database on every authorization check within a
// single process. Unknown users (nil subject) are not cached.
type CachedResolver[U comparable] struct {
	inner SubjectResolver[U]
	cache map[U]*cacheEntry
	mu    sync.RWMutex
	ttl   time.Duration
}

type cacheEntry struct {
	subject   Subject
	expiresAt time.Time
}

// NewCachedResolver wraps a resolver with caching.
// ttl is how long subjects are cached before re-fetching.
func NewCachedResolver[U comparable](inner SubjectResolver[U], ttl time.Duration) *CachedResolver[U] {
	return &CachedResolver[U]{
		inner: inner,
		cache: make(map[U]*cacheEntry),
		ttl:   ttl,
	}
}

// Resolve returns the subject for the given user, using cache if available.
func (r *CachedResolver[U]) Resolve(ctx context.Context, user U) (Subject, error) {
	r.mu.RLock()
	entry, ok := r.cache[user]
	r.mu.RUnlock()

	if ok && time.Now().Before(entry.expiresAt) {
		return entry.subject, nil
	}

	s, err := r.inner.Resolve(ctx, user)
	if err != nil || s == nil {
		return s, err
	}

	r.mu.Lock()
	r.cache[user] = &cacheEntry{
		subject:   s,
		expiresAt: time.Now().Add(r.ttl),
	}
	r.mu.Unlock()

	return s, nil
}

// Invalidate removes a user from the cache.
// Call this when a user's role changes.
func (r *CachedResolver[U]) Invalidate(_ context.Context, user U) error {
	r.mu.Lock()
	delete(r.cache, user)
	r.mu.Unlock()
	return nil
}

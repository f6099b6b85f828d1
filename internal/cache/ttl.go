// Package cache holds a single value for a short time in front of a slow
// loader.
package cache

import (
	"context"
	"sync"
	"time"
)

// TTL caches one value of type T. A zero or negative ttl disables caching,
// so every Get calls the loader.
type TTL[T any] struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	value    T
	loadedAt time.Time
	valid    bool
}

func NewTTL[T any](ttl time.Duration) *TTL[T] {
	return &TTL[T]{ttl: ttl, now: time.Now}
}

// Get returns the cached value while it is fresh, otherwise it calls load and
// caches the result. Concurrent callers wait for one load instead of each
// hitting the backend. Load errors are not cached.
func (c *TTL[T]) Get(ctx context.Context, load func(context.Context) (T, error)) (T, error) {
	if c.ttl <= 0 {
		return load(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid && c.now().Sub(c.loadedAt) < c.ttl {
		return c.value, nil
	}

	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.value, c.loadedAt, c.valid = v, c.now(), true
	return v, nil
}

// Set replaces the cached value, e.g. right after a successful write.
func (c *TTL[T]) Set(v T) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.value, c.loadedAt, c.valid = v, c.now(), true
	c.mu.Unlock()
}

// Invalidate drops the cached value so the next Get reloads.
func (c *TTL[T]) Invalidate() {
	c.mu.Lock()
	var zero T
	c.value, c.valid = zero, false
	c.mu.Unlock()
}

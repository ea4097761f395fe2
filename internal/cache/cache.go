// Package cache provides a short-TTL in-memory cache for aggregate search
// results. A single instance is constructed at process start and injected
// into the search service; there is no package-level singleton.
package cache

import (
	"sync"
	"time"
)

// Cache maps string keys to values with a per-entry TTL. Lookups past the
// deadline behave as misses; expired entries are also reclaimed by a
// background sweep. Concurrent use is safe.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// New creates an empty cache.
func New[V any]() *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]entry[V]),
		nowFunc: time.Now,
	}
}

// WithNow sets a fixed clock for testing.
func (c *Cache[V]) WithNow(now func() time.Time) *Cache[V] {
	c.nowFunc = now
	return c
}

// Get returns the cached value for key if present and unexpired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	var zero V
	if !ok || c.nowFunc().After(e.expiresAt) {
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for ttl.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.nowFunc().Add(ttl)}
	c.mu.Unlock()
}

// Len returns the number of entries, including any not yet swept.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep removes expired entries and returns how many were dropped.
func (c *Cache[V]) Sweep() int {
	now := c.nowFunc()
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := 0
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			dropped++
		}
	}
	return dropped
}

// StartSweeper sweeps the cache every interval until stop is closed.
func (c *Cache[V]) StartSweeper(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.Sweep()
			}
		}
	}()
}

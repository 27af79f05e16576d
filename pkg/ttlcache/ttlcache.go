package ttlcache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a thread-safe process-local cache with per-entry expiry.
// Entries are evicted lazily on read; a stale entry is never returned.
//
// Caches of this kind are per-instance by design: in a multi-instance
// deployment each instance resolves and caches independently, which is an
// accepted eventual-consistency tradeoff for the data cached here
// (pricing tables, exchange rates, token lookups).
type Cache[K comparable, V any] struct {
	ttl   time.Duration
	mu    sync.Mutex
	items map[K]entry[V]
	now   func() time.Time // overridable for tests
}

// New creates a cache whose entries live for ttl after being set.
// Panics on non-positive ttl to fail fast on misconfiguration.
func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	if ttl <= 0 {
		panic("ttlcache: ttl must be positive")
	}
	return &Cache[K, V]{
		ttl:   ttl,
		items: make(map[K]entry[V]),
		now:   time.Now,
	}
}

// Get retrieves a value if present and not expired.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.items, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores a value with the cache's TTL, replacing any existing entry.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Delete removes an entry, if present.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Len returns the number of stored entries, including any not yet
// lazily evicted.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// SetNowFunc overrides the clock. Tests only.
func (c *Cache[K, V]) SetNowFunc(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

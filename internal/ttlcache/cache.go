// Package ttlcache provides the expiring caches backing upstream data
// fetches: a size-bounded in-memory cache with LRU eviction and a durable
// SQLite-backed variant with the same contract.
package ttlcache

import (
	"strings"
	"sync"
	"time"
)

// DefaultMaxSize bounds the in-memory cache when no size is given.
const DefaultMaxSize = 10000

type entry struct {
	value        any
	expiresAt    time.Time
	lastAccessed time.Time
}

// Stats reports cache effectiveness counters.
type Stats struct {
	TotalEntries   int
	ActiveEntries  int
	ExpiredEntries int
	MaxSize        int
	Hits           int64
	Misses         int64
	HitRate        float64
}

// Cache is a thread-safe in-memory cache with TTL and LRU eviction.
// Expiration is lazy: a read past the deadline removes the entry and
// reports a miss.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*entry
	defaultTTL time.Duration
	maxSize    int
	hits       int64
	misses     int64
	now        func() time.Time
}

// New creates a cache with the given default TTL and maximum entry count.
// maxSize <= 0 falls back to DefaultMaxSize.
func New(defaultTTL time.Duration, maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Cache{
		entries:    make(map[string]*entry),
		defaultTTL: defaultTTL,
		maxSize:    maxSize,
		now:        time.Now,
	}
}

// Get returns the value for key when present and unexpired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	now := c.now()
	if now.After(e.expiresAt) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	e.lastAccessed = now
	c.hits++
	return e.value, true
}

// Set stores value under key. A zero ttl uses the cache default.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxSize > 0 {
		if _, exists := c.entries[key]; !exists {
			c.evictLocked(now)
		}
	}
	c.entries[key] = &entry{
		value:        value,
		expiresAt:    now.Add(ttl),
		lastAccessed: now,
	}
}

// evictLocked makes room for one new entry: expired entries go first, then
// the least recently accessed entries until the cache is below capacity.
func (c *Cache) evictLocked(now time.Time) {
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
	for len(c.entries) >= c.maxSize {
		var lruKey string
		var lruTime time.Time
		first := true
		for key, e := range c.entries {
			if first || e.lastAccessed.Before(lruTime) {
				lruKey = key
				lruTime = e.lastAccessed
				first = false
			}
		}
		if first {
			return
		}
		delete(c.entries, lruKey)
	}
}

// Delete removes a key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all entries and resets counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.hits = 0
	c.misses = 0
}

// CleanupExpired removes all expired entries and returns the count removed.
func (c *Cache) CleanupExpired() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the current entry count, including possibly expired entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit/miss counters and entry counts.
func (c *Cache) Stats() Stats {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	expired := 0
	for _, e := range c.entries {
		if now.After(e.expiresAt) {
			expired++
		}
	}
	return Stats{
		TotalEntries:   len(c.entries),
		ActiveEntries:  len(c.entries) - expired,
		ExpiredEntries: expired,
		MaxSize:        c.maxSize,
		Hits:           c.hits,
		Misses:         c.misses,
		HitRate:        hitRate(c.hits, c.misses),
	}
}

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Key joins parts into a cache key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

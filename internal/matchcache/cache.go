// Package matchcache decides which streams belong to which sporting events
// and remembers those decisions per stream fingerprint, so repeated sync
// runs skip the fuzzy-matching work for unchanged streams.
package matchcache

import (
	"sync"
	"time"
)

// Result is one stream's match decision.
type Result struct {
	Matched         bool
	EventID         string
	League          string
	HomeTeam        string
	AwayTeam        string
	Included        bool
	ExclusionReason string
	Label           string
	Behavior        string
	Score           float64
	Pattern         string
	FromCache       bool
}

type entry struct {
	groupID  int64
	streamID int64
	result   Result
	storedAt time.Time
}

// Cache maps stream fingerprints to match decisions.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	hits    uint64
	misses  uint64
	now     func() time.Time
}

// NewCache returns an empty decision cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get looks up a cached decision. The returned result has FromCache set.
func (c *Cache) Get(fingerprint string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[fingerprint]
	if !ok {
		c.misses++
		return Result{}, false
	}
	c.hits++
	result := e.result
	result.FromCache = true
	return result, true
}

// Put stores a decision for a stream fingerprint.
func (c *Cache) Put(fingerprint string, groupID, streamID int64, result Result) {
	result.FromCache = false
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fingerprint] = entry{
		groupID:  groupID,
		streamID: streamID,
		result:   result,
		storedAt: c.now(),
	}
}

// PurgeStale drops cached decisions for a group whose fingerprints are not
// in the active set, typically after a sync run observed the current stream
// list. Returns the number of entries removed.
func (c *Cache) PurgeStale(groupID int64, active map[string]struct{}) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for fp, e := range c.entries {
		if e.groupID != groupID {
			continue
		}
		if _, ok := active[fp]; !ok {
			delete(c.entries, fp)
			removed++
		}
	}
	return removed
}

// Clear drops every cached decision.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Stats describes cache usage.
type Stats struct {
	Entries int
	Hits    uint64
	Misses  uint64
	HitRate float64
}

// Stats returns a snapshot of cache usage.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := Stats{
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

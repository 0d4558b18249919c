package ttlcache

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"teamsync/internal/logging"
)

// Backend is the durable row store behind Persistent. The store package
// implements it over the service_cache table.
type Backend interface {
	CacheGet(key string) (payload string, expiresAt time.Time, ok bool, err error)
	CachePut(key, payload string, expiresAt, createdAt time.Time) error
	CacheDelete(key string) error
	CacheClear() error
	CacheDeleteExpired(cutoff time.Time) (int, error)
	CacheCounts(now time.Time) (total, expired int, err error)
}

// persistentMu guards all durable-cache I/O. It is package-level because
// multiple Persistent instances may share one underlying database file;
// the lock prevents "database is locked" contention, not logical races.
var persistentMu sync.Mutex

// Persistent is a durable cache with the same contract as Cache. Values are
// serialized to JSON and survive restarts. Capacity is unbounded.
type Persistent struct {
	backend    Backend
	defaultTTL time.Duration
	logger     *slog.Logger

	mu     sync.Mutex // guards counters only
	hits   int64
	misses int64
	now    func() time.Time
}

// NewPersistent creates a durable cache over the given backend.
func NewPersistent(backend Backend, defaultTTL time.Duration, logger *slog.Logger) *Persistent {
	return &Persistent{
		backend:    backend,
		defaultTTL: defaultTTL,
		logger:     logging.NewComponentLogger(logger, "ttlcache"),
		now:        time.Now,
	}
}

// Get returns the decoded value for key when present and unexpired. A
// corrupt payload is deleted and treated as a miss.
func (p *Persistent) Get(key string, out any) bool {
	persistentMu.Lock()
	defer persistentMu.Unlock()

	payload, expiresAt, ok, err := p.backend.CacheGet(key)
	if err != nil {
		p.logger.Warn("durable cache read failed", logging.String("key", key), logging.Error(err))
		p.countMiss()
		return false
	}
	if !ok {
		p.countMiss()
		return false
	}
	if p.now().After(expiresAt) {
		_ = p.backend.CacheDelete(key)
		p.countMiss()
		return false
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		p.logger.Warn("deleting corrupt durable cache entry", logging.String("key", key), logging.Error(err))
		_ = p.backend.CacheDelete(key)
		p.countMiss()
		return false
	}
	p.countHit()
	return true
}

// Set stores value under key. A zero ttl uses the cache default. A value
// that cannot be serialized is skipped with a warning.
func (p *Persistent) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = p.defaultTTL
	}
	payload, err := json.Marshal(value)
	if err != nil {
		p.logger.Warn("skipping unserializable cache value", logging.String("key", key), logging.Error(err))
		return
	}
	now := p.now()

	persistentMu.Lock()
	defer persistentMu.Unlock()
	if err := p.backend.CachePut(key, string(payload), now.Add(ttl), now); err != nil {
		p.logger.Warn("durable cache write failed", logging.String("key", key), logging.Error(err))
	}
}

// Delete removes a key.
func (p *Persistent) Delete(key string) {
	persistentMu.Lock()
	defer persistentMu.Unlock()
	if err := p.backend.CacheDelete(key); err != nil {
		p.logger.Warn("durable cache delete failed", logging.String("key", key), logging.Error(err))
	}
}

// Clear removes all entries and resets counters.
func (p *Persistent) Clear() {
	persistentMu.Lock()
	defer persistentMu.Unlock()
	if err := p.backend.CacheClear(); err != nil {
		p.logger.Warn("durable cache clear failed", logging.Error(err))
		return
	}
	p.mu.Lock()
	p.hits = 0
	p.misses = 0
	p.mu.Unlock()
}

// CleanupExpired removes all expired entries and returns the count removed.
func (p *Persistent) CleanupExpired() (int, error) {
	persistentMu.Lock()
	defer persistentMu.Unlock()
	return p.backend.CacheDeleteExpired(p.now())
}

// Stats returns hit/miss counters and entry counts.
func (p *Persistent) Stats() (Stats, error) {
	persistentMu.Lock()
	total, expired, err := p.backend.CacheCounts(p.now())
	persistentMu.Unlock()
	if err != nil {
		return Stats{}, err
	}

	p.mu.Lock()
	hits, misses := p.hits, p.misses
	p.mu.Unlock()

	return Stats{
		TotalEntries:   total,
		ActiveEntries:  total - expired,
		ExpiredEntries: expired,
		Hits:           hits,
		Misses:         misses,
		HitRate:        hitRate(hits, misses),
	}, nil
}

func (p *Persistent) countHit() {
	p.mu.Lock()
	p.hits++
	p.mu.Unlock()
}

func (p *Persistent) countMiss() {
	p.mu.Lock()
	p.misses++
	p.mu.Unlock()
}

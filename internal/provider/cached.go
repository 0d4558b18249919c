// Package provider wraps upstream sports-data sources with the tiered
// caching the rest of the system depends on: fast in-memory, durable
// across restarts, and permanent for finished dates.
package provider

import (
	"context"
	"log/slog"
	"time"

	"teamsync/internal/logging"
	"teamsync/internal/services"
	"teamsync/internal/sports"
	"teamsync/internal/store"
	"teamsync/internal/ttlcache"
)

// Cached layers caching over an upstream provider. Past dates are served
// from the historical store and written back there after a fetch; current
// and future dates flow through the memory and durable caches with TTLs
// tiered by proximity to today.
type Cached struct {
	inner   sports.Provider
	memory  *ttlcache.Cache
	durable *ttlcache.Persistent
	store   *store.Store
	logger  *slog.Logger
	now     func() time.Time
}

// NewCached wires the caching layers around inner. memory and durable may
// be nil, which disables that tier.
func NewCached(inner sports.Provider, memory *ttlcache.Cache, durable *ttlcache.Persistent, st *store.Store, logger *slog.Logger) *Cached {
	return &Cached{
		inner:   inner,
		memory:  memory,
		durable: durable,
		store:   st,
		logger:  logging.NewComponentLogger(logger, "provider"),
		now:     time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (c *Cached) SetClock(now func() time.Time) {
	c.now = now
}

// Name reports the upstream provider's name.
func (c *Cached) Name() string {
	return c.inner.Name()
}

// Leagues reports the leagues the upstream provider can serve.
func (c *Cached) Leagues() []string {
	return c.inner.Leagues()
}

// Events returns the events for a league on a calendar day.
func (c *Cached) Events(ctx context.Context, league string, day time.Time) ([]sports.Event, error) {
	today := c.now()

	if sports.Day(day).Before(sports.Day(today)) {
		return c.pastEvents(ctx, league, day)
	}

	key := ttlcache.Key("events", c.inner.Name(), league, sports.DayString(day))

	if c.memory != nil {
		if v, ok := c.memory.Get(key); ok {
			if events, ok := v.([]sports.Event); ok {
				return events, nil
			}
		}
	}

	ttl := ttlcache.TTLForDate(day, today)

	if c.durable != nil {
		var events []sports.Event
		if c.durable.Get(key, &events) {
			if c.memory != nil {
				c.memory.Set(key, events, ttl)
			}
			return events, nil
		}
	}

	events, err := c.inner.Events(ctx, league, day)
	if err != nil {
		return nil, services.Wrap(services.ErrUpstream, "provider", "fetch events", league, err)
	}
	if c.memory != nil {
		c.memory.Set(key, events, ttl)
	}
	if c.durable != nil {
		c.durable.Set(key, events, ttl)
	}
	return events, nil
}

// pastEvents serves a finished date. Results for past dates are final, so
// the historical store answers without any TTL and a fetch is a one-time
// backfill.
func (c *Cached) pastEvents(ctx context.Context, league string, day time.Time) ([]sports.Event, error) {
	if c.store != nil {
		events, ok, err := c.store.CachedEvents(ctx, c.inner.Name(), league, day)
		if err != nil {
			c.logger.Warn("historical cache read failed",
				logging.Args(logging.String("league", league), logging.Error(err))...)
		} else if ok {
			return events, nil
		}
	}

	events, err := c.inner.Events(ctx, league, day)
	if err != nil {
		return nil, services.Wrap(services.ErrUpstream, "provider", "fetch events", league, err)
	}
	if c.store != nil {
		if err := c.store.CacheEvents(ctx, c.inner.Name(), league, day, events); err != nil {
			c.logger.Warn("historical cache write failed",
				logging.Args(logging.String("league", league), logging.Error(err))...)
		}
	}
	return events, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"teamsync/internal/sports"
)

// CachedEvents returns the cached event list for a provider/league/date.
// The second return is false when nothing is cached (caller should fetch).
// A cached-but-empty day returns an empty slice and true.
func (s *Store) CachedEvents(ctx context.Context, provider, league string, day time.Time) ([]sports.Event, bool, error) {
	var payload string
	err := s.db.QueryRowContext(
		ctx,
		`SELECT events_json FROM provider_events_cache
         WHERE provider = ? AND league = ? AND event_date = ?`,
		provider, league, sports.DayString(day),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query event cache: %w", err)
	}

	events, err := sports.DecodeEvents(payload)
	if err != nil {
		// Corrupt payload: drop the row and report a miss so the caller refetches.
		_, _ = s.db.ExecContext(
			ctx,
			`DELETE FROM provider_events_cache WHERE provider = ? AND league = ? AND event_date = ?`,
			provider, league, sports.DayString(day),
		)
		return nil, false, nil
	}
	return events, true, nil
}

// CacheEvents stores events for a provider/league/date. Only dates strictly
// before today are cached; those results are final and immutable.
func (s *Store) CacheEvents(ctx context.Context, provider, league string, day time.Time, events []sports.Event) error {
	if !sports.Day(day).Before(sports.Day(s.now())) {
		return nil
	}

	payload, err := sports.EncodeEvents(events)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO provider_events_cache
         (provider, league, event_date, events_json, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		provider, league, sports.DayString(day), payload, formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("cache events: %w", err)
	}
	return nil
}

// CleanupOldEvents deletes event cache rows older than maxAgeDays by event
// date. Returns the count removed.
func (s *Store) CleanupOldEvents(ctx context.Context, maxAgeDays int) (int, error) {
	cutoff := sports.DayString(s.now().AddDate(0, 0, -maxAgeDays))
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM provider_events_cache WHERE event_date < ?`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("cleanup old events: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(affected), nil
}

// EventCacheStats summarizes the historical event cache.
type EventCacheStats struct {
	TotalEntries int
	Providers    int
	Leagues      int
	OldestDate   string
	NewestDate   string
}

// EventCacheSummary returns aggregate statistics for the event cache.
func (s *Store) EventCacheSummary(ctx context.Context) (EventCacheStats, error) {
	var stats EventCacheStats
	var oldest, newest sql.NullString
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*), COUNT(DISTINCT provider), COUNT(DISTINCT league),
                MIN(event_date), MAX(event_date)
         FROM provider_events_cache`,
	).Scan(&stats.TotalEntries, &stats.Providers, &stats.Leagues, &oldest, &newest)
	if err != nil {
		return stats, fmt.Errorf("event cache stats: %w", err)
	}
	stats.OldestDate = oldest.String
	stats.NewestDate = newest.String
	return stats, nil
}

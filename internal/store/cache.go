package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// The methods below implement ttlcache.Backend over the service_cache
// table. Serialization of durable-cache access is handled by the caller;
// each method is one short-lived statement.

// CacheGet reads a durable cache row.
func (s *Store) CacheGet(key string) (string, time.Time, bool, error) {
	var payload, expiresRaw string
	err := s.db.QueryRowContext(
		context.Background(),
		`SELECT data_json, expires_at FROM service_cache WHERE cache_key = ?`,
		key,
	).Scan(&payload, &expiresRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", time.Time{}, false, nil
	}
	if err != nil {
		return "", time.Time{}, false, fmt.Errorf("cache get: %w", err)
	}
	expiresAt, err := parseTimeString(expiresRaw)
	if err != nil {
		return "", time.Time{}, false, fmt.Errorf("parse expires_at: %w", err)
	}
	return payload, expiresAt, true, nil
}

// CachePut writes (or replaces) a durable cache row.
func (s *Store) CachePut(key, payload string, expiresAt, createdAt time.Time) error {
	_, err := s.db.ExecContext(
		context.Background(),
		`INSERT OR REPLACE INTO service_cache (cache_key, data_json, expires_at, created_at)
         VALUES (?, ?, ?, ?)`,
		key, payload, formatTime(expiresAt), formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// CacheDelete removes a durable cache row.
func (s *Store) CacheDelete(key string) error {
	_, err := s.db.ExecContext(
		context.Background(),
		`DELETE FROM service_cache WHERE cache_key = ?`,
		key,
	)
	if err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// CacheClear removes all durable cache rows.
func (s *Store) CacheClear() error {
	_, err := s.db.ExecContext(context.Background(), `DELETE FROM service_cache`)
	if err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// CacheDeleteExpired removes rows whose deadline passed before cutoff.
func (s *Store) CacheDeleteExpired(cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(
		context.Background(),
		`DELETE FROM service_cache WHERE expires_at < ?`,
		formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("cache delete expired: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(affected), nil
}

// CacheCounts returns total and expired durable cache row counts.
func (s *Store) CacheCounts(now time.Time) (int, int, error) {
	var total, expired int
	err := s.db.QueryRowContext(
		context.Background(),
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN expires_at < ? THEN 1 ELSE 0 END), 0)
         FROM service_cache`,
		formatTime(now),
	).Scan(&total, &expired)
	if err != nil {
		return 0, 0, fmt.Errorf("cache counts: %w", err)
	}
	return total, expired, nil
}

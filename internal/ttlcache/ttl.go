package ttlcache

import (
	"time"

	"teamsync/internal/sports"
)

// TTLEvents is the baseline TTL for upstream event data, sized for typical
// regeneration patterns (hourly to daily runs).
const TTLEvents = 8 * time.Hour

const (
	ttlPast     = 180 * 24 * time.Hour
	ttlToday    = 30 * time.Minute
	ttlTomorrow = 4 * time.Hour
)

// TTLForDate returns the events cache TTL for a target date, tiered by
// proximity to today. Past results are final and keep for 180 days; today
// needs fresh data for flex times and live scores; tomorrow may still flex;
// further out is mostly stable.
func TTLForDate(target, today time.Time) time.Duration {
	days := int(sports.Day(target).Sub(sports.Day(today)).Hours() / 24)
	switch {
	case days < 0:
		return ttlPast
	case days == 0:
		return ttlToday
	case days == 1:
		return ttlTomorrow
	default:
		return TTLEvents
	}
}

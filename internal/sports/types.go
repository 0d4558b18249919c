// Package sports defines the provider-facing domain types: teams, events,
// and the upstream data boundary.
package sports

import (
	"context"
	"time"
)

// Team is a snapshot of a team as reported by a data provider.
type Team struct {
	ID           string `json:"id"`
	Provider     string `json:"provider"`
	Name         string `json:"name"`
	ShortName    string `json:"short_name"`
	Abbreviation string `json:"abbreviation"`
	League       string `json:"league"`
	Sport        string `json:"sport"`
	LogoURL      string `json:"logo_url,omitempty"`
	Color        string `json:"color,omitempty"`
}

// EventStatus describes the live state of an event.
type EventStatus struct {
	State  string `json:"state"`
	Detail string `json:"detail,omitempty"`
	Period int    `json:"period,omitempty"`
	Clock  string `json:"clock,omitempty"`
}

// Venue describes where an event takes place.
type Venue struct {
	Name    string `json:"name"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
}

// Event is a scheduled, ongoing, or finished game.
type Event struct {
	ID         string      `json:"id"`
	Provider   string      `json:"provider"`
	Name       string      `json:"name"`
	ShortName  string      `json:"short_name"`
	StartTime  time.Time   `json:"start_time"`
	HomeTeam   Team        `json:"home_team"`
	AwayTeam   Team        `json:"away_team"`
	Status     EventStatus `json:"status"`
	League     string      `json:"league"`
	Sport      string      `json:"sport"`
	HomeScore  *int        `json:"home_score,omitempty"`
	AwayScore  *int        `json:"away_score,omitempty"`
	Venue      *Venue      `json:"venue,omitempty"`
	Broadcasts []string    `json:"broadcasts,omitempty"`
	SeasonYear int         `json:"season_year,omitempty"`
	SeasonType string      `json:"season_type,omitempty"`
}

// Provider is the upstream sports-data boundary. A failed fetch is treated
// by callers as "no events for this league", never as a fatal condition.
type Provider interface {
	Name() string
	Leagues() []string
	Events(ctx context.Context, league string, day time.Time) ([]Event, error)
}

// Day truncates a time to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayString formats a date the way cache keys and store rows expect.
func DayString(t time.Time) string {
	return Day(t).Format("2006-01-02")
}

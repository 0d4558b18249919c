package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"teamsync/internal/services"
	"teamsync/internal/sports"
)

const defaultScoreboardBase = "https://site.api.espn.com/apis/site/v2/sports"

// leaguePaths maps league identifiers to the scoreboard API's sport/league
// path segments.
var leaguePaths = map[string]string{
	"nfl":   "football/nfl",
	"ncaaf": "football/college-football",
	"nba":   "basketball/nba",
	"wnba":  "basketball/wnba",
	"ncaab": "basketball/mens-college-basketball",
	"mlb":   "baseball/mlb",
	"nhl":   "hockey/nhl",
	"mls":   "soccer/usa.1",
	"epl":   "soccer/eng.1",
}

// Scoreboard fetches daily event slates from the public scoreboard API.
type Scoreboard struct {
	baseURL    string
	httpClient *http.Client
}

// NewScoreboard builds the upstream provider. baseURL is overridable for
// tests; empty uses the public endpoint.
func NewScoreboard(baseURL string, timeout time.Duration) *Scoreboard {
	if baseURL == "" {
		baseURL = defaultScoreboardBase
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scoreboard{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name implements sports.Provider.
func (s *Scoreboard) Name() string {
	return "espn"
}

// Leagues implements sports.Provider.
func (s *Scoreboard) Leagues() []string {
	leagues := make([]string, 0, len(leaguePaths))
	for league := range leaguePaths {
		leagues = append(leagues, league)
	}
	sort.Strings(leagues)
	return leagues
}

// Events implements sports.Provider.
func (s *Scoreboard) Events(ctx context.Context, league string, day time.Time) ([]sports.Event, error) {
	path, ok := leaguePaths[league]
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "scoreboard", "fetch events", "unknown league "+league, nil)
	}

	target := fmt.Sprintf("%s/%s/scoreboard?dates=%s", s.baseURL, path, sports.Day(day).Format("20060102"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload scoreboardResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	sport, _, _ := strings.Cut(path, "/")
	return payload.toEvents(s.Name(), league, sport), nil
}

type scoreboardResponse struct {
	Events []struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		ShortName string `json:"shortName"`
		Date      string `json:"date"`
		Season    struct {
			Year int    `json:"year"`
			Slug string `json:"slug"`
		} `json:"season"`
		Competitions []struct {
			Venue struct {
				FullName string `json:"fullName"`
				Address  struct {
					City    string `json:"city"`
					State   string `json:"state"`
					Country string `json:"country"`
				} `json:"address"`
			} `json:"venue"`
			Competitors []struct {
				HomeAway string `json:"homeAway"`
				Score    string `json:"score"`
				Team     struct {
					ID               string `json:"id"`
					DisplayName      string `json:"displayName"`
					ShortDisplayName string `json:"shortDisplayName"`
					Abbreviation     string `json:"abbreviation"`
					Logo             string `json:"logo"`
					Color            string `json:"color"`
				} `json:"team"`
			} `json:"competitors"`
			Broadcasts []struct {
				Names []string `json:"names"`
			} `json:"broadcasts"`
			Status struct {
				Period       int    `json:"period"`
				DisplayClock string `json:"displayClock"`
				Type         struct {
					State       string `json:"state"`
					Description string `json:"description"`
				} `json:"type"`
			} `json:"status"`
		} `json:"competitions"`
	} `json:"events"`
	Leagues []struct {
		Abbreviation string `json:"abbreviation"`
	} `json:"leagues"`
}

func (r scoreboardResponse) toEvents(providerName, league, sport string) []sports.Event {
	events := make([]sports.Event, 0, len(r.Events))
	for _, raw := range r.Events {
		if len(raw.Competitions) == 0 {
			continue
		}
		comp := raw.Competitions[0]

		ev := sports.Event{
			ID:         raw.ID,
			Provider:   providerName,
			Name:       raw.Name,
			ShortName:  raw.ShortName,
			League:     league,
			Sport:      sport,
			SeasonYear: raw.Season.Year,
			SeasonType: raw.Season.Slug,
			Status: sports.EventStatus{
				State:  comp.Status.Type.State,
				Detail: comp.Status.Type.Description,
				Period: comp.Status.Period,
				Clock:  comp.Status.DisplayClock,
			},
		}
		if t, err := time.Parse("2006-01-02T15:04Z", raw.Date); err == nil {
			ev.StartTime = t
		} else if t, err := time.Parse(time.RFC3339, raw.Date); err == nil {
			ev.StartTime = t
		}
		if comp.Venue.FullName != "" {
			ev.Venue = &sports.Venue{
				Name:    comp.Venue.FullName,
				City:    comp.Venue.Address.City,
				State:   comp.Venue.Address.State,
				Country: comp.Venue.Address.Country,
			}
		}
		for _, bc := range comp.Broadcasts {
			ev.Broadcasts = append(ev.Broadcasts, bc.Names...)
		}
		for _, competitor := range comp.Competitors {
			team := sports.Team{
				ID:           competitor.Team.ID,
				Provider:     providerName,
				Name:         competitor.Team.DisplayName,
				ShortName:    competitor.Team.ShortDisplayName,
				Abbreviation: competitor.Team.Abbreviation,
				League:       league,
				Sport:        sport,
				LogoURL:      competitor.Team.Logo,
				Color:        competitor.Team.Color,
			}
			score := parseScore(competitor.Score)
			switch competitor.HomeAway {
			case "home":
				ev.HomeTeam = team
				ev.HomeScore = score
			case "away":
				ev.AwayTeam = team
				ev.AwayScore = score
			}
		}
		events = append(events, ev)
	}
	return events
}

func parseScore(raw string) *int {
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}

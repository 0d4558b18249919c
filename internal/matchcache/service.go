package matchcache

import (
	"log/slog"

	"teamsync/internal/fuzzymatch"
	"teamsync/internal/headend"
	"teamsync/internal/keywords"
	"teamsync/internal/logging"
	"teamsync/internal/sports"
	"teamsync/internal/store"
)

// StreamMatch pairs a stream with its decision.
type StreamMatch struct {
	Stream headend.Stream
	Result Result
}

// BatchResult is the outcome of matching one group's streams against its
// events. Matches preserves the input stream order. Every stream lands in
// exactly one of Matched, Unmatched, or Excluded.
type BatchResult struct {
	Matches   []StreamMatch
	Total     int
	Matched   int
	Unmatched int
	Excluded  int
	CacheHits int
}

// MatchRate is the share of all streams that matched an event.
func (b BatchResult) MatchRate() float64 {
	if b.Total == 0 {
		return 0
	}
	return float64(b.Matched) / float64(b.Total)
}

// CacheHitRate is the share of streams answered from cache.
func (b BatchResult) CacheHitRate() float64 {
	if b.Total == 0 {
		return 0
	}
	return float64(b.CacheHits) / float64(b.Total)
}

// Service matches streams to events, consulting the decision cache first.
type Service struct {
	matcher  *fuzzymatch.Matcher
	keywords *keywords.Matcher
	cache    *Cache
	logger   *slog.Logger
}

// NewService wires the matching engine. A nil keyword matcher disables
// exception handling; a nil logger logs nowhere.
func NewService(matcher *fuzzymatch.Matcher, kw *keywords.Matcher, cache *Cache, logger *slog.Logger) *Service {
	if matcher == nil {
		matcher = fuzzymatch.New()
	}
	if cache == nil {
		cache = NewCache()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		matcher:  matcher,
		keywords: kw,
		cache:    cache,
		logger:   logging.NewComponentLogger(logger, "matchcache"),
	}
}

// Cache exposes the underlying decision cache.
func (s *Service) Cache() *Cache {
	return s.cache
}

// SetKeywords swaps the keyword matcher, typically after keyword edits.
func (s *Service) SetKeywords(kw *keywords.Matcher) {
	s.keywords = kw
}

// MatchAll matches every stream against the group's events. Decisions come
// from the cache when the stream fingerprint is unchanged; fresh decisions
// are cached. Stale fingerprints for the group are purged afterwards.
func (s *Service) MatchAll(group *store.Group, streams []headend.Stream, events []sports.Event) BatchResult {
	result := BatchResult{
		Matches: make([]StreamMatch, 0, len(streams)),
		Total:   len(streams),
	}
	active := make(map[string]struct{}, len(streams))

	patterns := buildEventPatterns(events)

	for _, stream := range streams {
		fp := Fingerprint(group.ID, stream.ID, stream.Name)
		active[fp] = struct{}{}

		decision, ok := s.cache.Get(fp)
		if ok {
			result.CacheHits++
		} else {
			decision = s.matchStream(stream, events, patterns)
			s.cache.Put(fp, group.ID, stream.ID, decision)
		}

		switch {
		case decision.Matched:
			result.Matched++
		case !decision.Included:
			result.Excluded++
		default:
			result.Unmatched++
		}
		result.Matches = append(result.Matches, StreamMatch{Stream: stream, Result: decision})
	}

	if purged := s.cache.PurgeStale(group.ID, active); purged > 0 {
		s.logger.Debug("purged stale match decisions",
			logging.Args(
				logging.Int64("group_id", group.ID),
				logging.Int("purged", purged),
			)...)
	}

	return result
}

type eventPatterns struct {
	home []fuzzymatch.Pattern
	away []fuzzymatch.Pattern
}

func buildEventPatterns(events []sports.Event) []eventPatterns {
	patterns := make([]eventPatterns, len(events))
	for i, ev := range events {
		patterns[i] = eventPatterns{
			home: fuzzymatch.TeamPatterns(ev.HomeTeam),
			away: fuzzymatch.TeamPatterns(ev.AwayTeam),
		}
	}
	return patterns
}

// matchStream decides one stream. Keyword exceptions run first: "ignore"
// excludes the stream outright, "separate" carries a label through to
// channel creation. An event matching on both team sides wins; a single
// event matching on exactly one side is accepted too, since one team name
// plus league context is usually enough ("Celtics Game Feed").
func (s *Service) matchStream(stream headend.Stream, events []sports.Event, patterns []eventPatterns) Result {
	decision := Result{Included: true}

	if s.keywords != nil {
		if kw := s.keywords.Match(stream.Name); kw.Matched {
			switch kw.Behavior {
			case keywords.BehaviorIgnore:
				return Result{
					Included:        false,
					ExclusionReason: "keyword: " + kw.Term,
				}
			case keywords.BehaviorSeparate:
				decision.Label = kw.Label
				decision.Behavior = kw.Behavior
			}
		}
	}

	type candidate struct {
		index   int
		score   float64
		pattern string
	}
	var full []candidate
	var partial []candidate

	for i := range events {
		homeRes := s.matcher.MatchesAny(patterns[i].home, stream.Name)
		awayRes := s.matcher.MatchesAny(patterns[i].away, stream.Name)
		switch {
		case homeRes.Matched && awayRes.Matched:
			full = append(full, candidate{
				index:   i,
				score:   (homeRes.Score + awayRes.Score) / 2,
				pattern: homeRes.Pattern + " / " + awayRes.Pattern,
			})
		case homeRes.Matched:
			partial = append(partial, candidate{index: i, score: homeRes.Score, pattern: homeRes.Pattern})
		case awayRes.Matched:
			partial = append(partial, candidate{index: i, score: awayRes.Score, pattern: awayRes.Pattern})
		}
	}

	var chosen *candidate
	switch {
	case len(full) > 0:
		best := full[0]
		for _, c := range full[1:] {
			if c.score > best.score {
				best = c
			}
		}
		chosen = &best
	case len(partial) == 1:
		// A single-side match is only safe when no other event could claim
		// the stream.
		chosen = &partial[0]
	}

	if chosen == nil {
		return decision
	}

	ev := events[chosen.index]
	decision.Matched = true
	decision.EventID = ev.ID
	decision.League = ev.League
	decision.HomeTeam = ev.HomeTeam.Name
	decision.AwayTeam = ev.AwayTeam.Name
	decision.Score = chosen.score
	decision.Pattern = chosen.pattern
	return decision
}

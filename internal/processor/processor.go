// Package processor orchestrates one sync run: streams in, events in,
// matches out, channels advanced. It owns no policy of its own; it wires
// the matching and lifecycle services together per group.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"teamsync/internal/headend"
	"teamsync/internal/lifecycle"
	"teamsync/internal/logging"
	"teamsync/internal/matchcache"
	"teamsync/internal/services"
	"teamsync/internal/sports"
	"teamsync/internal/store"
)

// ProcessingResult is the structured outcome of processing one group.
type ProcessingResult struct {
	RunID              string
	GroupID            int64
	GroupName          string
	Day                time.Time
	StreamCount        int
	EventCount         int
	Match              matchcache.BatchResult
	Lifecycle          *lifecycle.Outcome
	ScheduledDeletions int
	Warnings           []string
	Errors             []string
	StartedAt          time.Time
	FinishedAt         time.Time
}

// Failed reports whether the run recorded any errors.
func (r *ProcessingResult) Failed() bool {
	return len(r.Errors) > 0
}

// BatchProcessingResult aggregates per-group results for one full run.
type BatchProcessingResult struct {
	RunID      string
	Day        time.Time
	Groups     []*ProcessingResult
	StartedAt  time.Time
	FinishedAt time.Time
}

// TotalErrors counts errors across all groups.
func (b *BatchProcessingResult) TotalErrors() int {
	total := 0
	for _, g := range b.Groups {
		total += len(g.Errors)
	}
	return total
}

// TotalCreated counts channels created across all groups.
func (b *BatchProcessingResult) TotalCreated() int {
	total := 0
	for _, g := range b.Groups {
		if g.Lifecycle != nil {
			total += len(g.Lifecycle.Created)
		}
	}
	return total
}

// Processor runs sync passes over event groups.
type Processor struct {
	store     *store.Store
	provider  sports.Provider
	matches   *matchcache.Service
	lifecycle *lifecycle.Service
	client    headend.Client
	logger    *slog.Logger
	now       func() time.Time
}

// New wires the orchestrator. A nil headend client degrades every group to
// an empty stream list rather than failing.
func New(st *store.Store, prov sports.Provider, matches *matchcache.Service, lc *lifecycle.Service, client headend.Client, logger *slog.Logger) *Processor {
	return &Processor{
		store:     st,
		provider:  prov,
		matches:   matches,
		lifecycle: lc,
		client:    client,
		logger:    logging.NewComponentLogger(logger, "processor"),
		now:       time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (p *Processor) SetClock(now func() time.Time) {
	p.now = now
}

// ProcessGroup runs one group for one calendar day.
func (p *Processor) ProcessGroup(ctx context.Context, groupID int64, day time.Time) (*ProcessingResult, error) {
	group, err := p.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, services.Wrap(services.ErrNotFound, "processor", "process group", fmt.Sprintf("group %d", groupID), nil)
	}
	return p.processGroup(ctx, group, day), nil
}

func (p *Processor) processGroup(ctx context.Context, group *store.Group, day time.Time) *ProcessingResult {
	result := &ProcessingResult{
		RunID:     uuid.NewString(),
		GroupID:   group.ID,
		GroupName: group.Name,
		Day:       sports.Day(day),
		StartedAt: p.now().UTC(),
	}
	defer func() {
		result.FinishedAt = p.now().UTC()
	}()

	logger := p.logger.With(logging.Args(
		logging.String("run_id", result.RunID),
		logging.Int64("group_id", group.ID),
	)...)
	logger.Info("processing group", logging.String("group", group.Name), logging.String("day", sports.DayString(day)))

	streams := p.fetchStreams(ctx, group, result)
	result.StreamCount = len(streams)
	if len(streams) == 0 {
		result.Errors = append(result.Errors, "no streams available for group")
		return result
	}

	events := p.fetchEvents(ctx, group, day, result, logger)
	result.EventCount = len(events)

	result.Match = p.matches.MatchAll(group, streams, events)

	eventsByID := make(map[string]sports.Event, len(events))
	for _, ev := range events {
		eventsByID[ev.ID] = ev
	}
	var pairs []lifecycle.Match
	for _, m := range result.Match.Matches {
		if !m.Result.Matched || !m.Result.Included {
			continue
		}
		ev, ok := eventsByID[m.Result.EventID]
		if !ok {
			continue
		}
		pairs = append(pairs, lifecycle.Match{
			Stream:   m.Stream,
			Event:    ev,
			Label:    m.Result.Label,
			Behavior: m.Result.Behavior,
		})
	}

	outcome, err := p.lifecycle.ProcessMatches(ctx, group, pairs, day)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	result.Lifecycle = outcome
	result.Errors = append(result.Errors, outcome.Errors...)

	activeStreams := make(map[int64]struct{}, len(streams))
	for _, stream := range streams {
		activeStreams[stream.ID] = struct{}{}
	}
	scheduled, err := p.lifecycle.ScheduleDeletions(ctx, group, activeStreams)
	if err != nil {
		result.Warnings = append(result.Warnings, "schedule deletions: "+err.Error())
	}
	result.ScheduledDeletions = scheduled

	logger.Info("group processed",
		logging.Args(
			logging.Int("streams", result.StreamCount),
			logging.Int("events", result.EventCount),
			logging.Int("matched", result.Match.Matched),
			logging.Int("errors", len(result.Errors)),
		)...)
	return result
}

func (p *Processor) fetchStreams(ctx context.Context, group *store.Group, result *ProcessingResult) []headend.Stream {
	if p.client == nil {
		result.Warnings = append(result.Warnings, "no headend client configured; stream list empty")
		return nil
	}
	streams, err := p.client.ListStreams(ctx, group.M3UGroupID)
	if err != nil {
		result.Errors = append(result.Errors, "list streams: "+err.Error())
		return nil
	}
	return streams
}

func (p *Processor) fetchEvents(ctx context.Context, group *store.Group, day time.Time, result *ProcessingResult, logger *slog.Logger) []sports.Event {
	var events []sports.Event
	for _, league := range group.Leagues {
		leagueEvents, err := p.provider.Events(ctx, league, day)
		if err != nil {
			// One league failing means no events for that league, never a
			// dead run.
			result.Warnings = append(result.Warnings, fmt.Sprintf("league %s: %v", league, err))
			logger.Warn("event fetch failed", logging.String("league", league), logging.Error(err))
			continue
		}
		events = append(events, leagueEvents...)
	}
	return events
}

// ProcessAllGroups runs every active group for one day. A panic or failure
// in one group is captured in its result and never aborts the others.
func (p *Processor) ProcessAllGroups(ctx context.Context, day time.Time) (*BatchProcessingResult, error) {
	groups, err := p.store.ListGroups(ctx, false)
	if err != nil {
		return nil, err
	}

	batch := &BatchProcessingResult{
		RunID:     uuid.NewString(),
		Day:       sports.Day(day),
		StartedAt: p.now().UTC(),
	}
	for _, group := range groups {
		batch.Groups = append(batch.Groups, p.processGroupSafe(ctx, group, day))
	}
	batch.FinishedAt = p.now().UTC()

	p.logger.Info("batch finished",
		logging.Args(
			logging.String("run_id", batch.RunID),
			logging.Int("groups", len(batch.Groups)),
			logging.Int("errors", batch.TotalErrors()),
		)...)
	return batch, nil
}

func (p *Processor) processGroupSafe(ctx context.Context, group *store.Group, day time.Time) (result *ProcessingResult) {
	defer func() {
		if r := recover(); r != nil {
			if result == nil {
				result = &ProcessingResult{
					RunID:     uuid.NewString(),
					GroupID:   group.ID,
					GroupName: group.Name,
					Day:       sports.Day(day),
					StartedAt: p.now().UTC(),
				}
			}
			result.FinishedAt = p.now().UTC()
			result.Errors = append(result.Errors, fmt.Sprintf("panic: %v", r))
			p.logger.Error("group processing panicked",
				logging.Args(logging.Int64("group_id", group.ID), logging.Any("panic", r))...)
		}
	}()
	return p.processGroup(ctx, group, day)
}

// Package lifecycle drives managed channels through their states: matched
// streams become pending channels, pending channels are created on the
// headend when their timing policy says so, and finished events get their
// channels torn down.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"teamsync/internal/headend"
	"teamsync/internal/logging"
	"teamsync/internal/sports"
	"teamsync/internal/store"
)

// Config carries the channel-shaping knobs.
type Config struct {
	// NamePrefix marks channels this service owns on the headend.
	NamePrefix string
	// DefaultGameHours estimates event duration when scheduling deletions.
	DefaultGameHours int
}

// Match is one stream bound to one event, with any keyword exception that
// rode along.
type Match struct {
	Stream   headend.Stream
	Event    sports.Event
	Label    string
	Behavior string
}

// Outcome summarizes one ProcessMatches pass.
type Outcome struct {
	Created  []*store.ManagedChannel
	Existing []*store.ManagedChannel
	Skipped  int
	Errors   []string
}

// DeletionResult summarizes one deletion pass.
type DeletionResult struct {
	Deleted []int64
	Errors  []string
}

// Service owns managed-channel state transitions. A nil headend client puts
// the service in record-only mode: local rows advance but nothing is pushed
// externally, so channels stay pending until a client is available.
type Service struct {
	store  *store.Store
	client headend.Client
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires the lifecycle service.
func NewService(st *store.Store, client headend.Client, cfg Config, logger *slog.Logger) *Service {
	if cfg.DefaultGameHours <= 0 {
		cfg.DefaultGameHours = 4
	}
	return &Service{
		store:  st,
		client: client,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "lifecycle"),
		now:    time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// ProcessMatches advances channel state for a batch of matched streams.
// Duplicate events are handled per the group policy, except that a keyword
// "separate" match always gets its own channel (alternate feeds like
// Spanish-language broadcasts). Failures are recorded per match; one bad
// stream never aborts the batch.
func (s *Service) ProcessMatches(ctx context.Context, group *store.Group, matches []Match, today time.Time) (*Outcome, error) {
	if group == nil {
		return nil, fmt.Errorf("group is nil")
	}
	outcome := &Outcome{}

	for _, match := range matches {
		if err := s.processMatch(ctx, group, match, today, outcome); err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("stream %d: %v", match.Stream.ID, err))
			s.logger.Warn("match processing failed",
				logging.Args(
					logging.Int64("group_id", group.ID),
					logging.Int64("stream_id", match.Stream.ID),
					logging.Error(err),
				)...)
		}
	}
	return outcome, nil
}

func (s *Service) processMatch(ctx context.Context, group *store.Group, match Match, today time.Time, outcome *Outcome) error {
	separate := group.DuplicateEventHandling == store.DuplicateSeparate ||
		match.Behavior == store.DuplicateSeparate

	var existing *store.ManagedChannel
	var err error
	if separate {
		existing, err = s.store.FindChannelByGroupStream(ctx, group.ID, match.Stream.ID)
	} else {
		existing, err = s.store.FindChannelByGroupEvent(ctx, group.ID, match.Event.ID)
	}
	if err != nil {
		return err
	}

	if existing != nil {
		if !separate && group.DuplicateEventHandling == store.DuplicateIgnore &&
			existing.PrimaryStreamID != match.Stream.ID {
			outcome.Skipped++
			return nil
		}
		if !separate && !containsID(existing.StreamIDs, match.Stream.ID) {
			existing.StreamIDs = append(existing.StreamIDs, match.Stream.ID)
			if err := s.pushStreams(ctx, existing); err != nil {
				return err
			}
			if err := s.store.UpdateChannel(ctx, existing); err != nil {
				return err
			}
		}
		if existing.Status == store.ChannelPendingCreate && s.creationDue(group, match.Event.StartTime, today) {
			if err := s.createExternal(ctx, group, existing); err != nil {
				return err
			}
		}
		outcome.Existing = append(outcome.Existing, existing)
		return nil
	}

	channel := &store.ManagedChannel{
		GroupID:         group.ID,
		PrimaryStreamID: match.Stream.ID,
		StreamIDs:       []int64{match.Stream.ID},
		EventID:         match.Event.ID,
		EventLeague:     match.Event.League,
		EventStart:      match.Event.StartTime,
		ChannelName:     s.channelName(match.Event, match.Label),
		Label:           match.Label,
		Status:          store.ChannelPendingCreate,
	}
	channel, err = s.store.InsertChannel(ctx, channel)
	if err != nil {
		return err
	}

	if s.creationDue(group, match.Event.StartTime, today) {
		if err := s.createExternal(ctx, group, channel); err != nil {
			// Row stays pending_create; the next run retries.
			outcome.Created = append(outcome.Created, channel)
			return err
		}
	}
	outcome.Created = append(outcome.Created, channel)
	return nil
}

// createExternal pushes a pending channel to the headend and activates it.
// In record-only mode the channel stays pending.
func (s *Service) createExternal(ctx context.Context, group *store.Group, ch *store.ManagedChannel) error {
	if s.client == nil {
		return nil
	}
	number, err := s.nextChannelNumber(ctx, group)
	if err != nil {
		return err
	}
	created, err := s.client.CreateChannel(ctx, headend.ChannelSpec{
		Name:            ch.ChannelName,
		ChannelNumber:   number,
		ChannelGroupID:  group.ChannelGroupID,
		StreamProfileID: group.StreamProfileID,
		StreamIDs:       ch.StreamIDs,
	})
	if err != nil {
		return err
	}
	ch.ExternalID = created.ID
	ch.Status = store.ChannelActive
	if err := s.store.UpdateChannel(ctx, ch); err != nil {
		return err
	}
	s.logger.Info("channel created",
		logging.Args(
			logging.Int64("channel_id", ch.ID),
			logging.Int64("external_id", ch.ExternalID),
			logging.String("name", ch.ChannelName),
		)...)
	return nil
}

// nextChannelNumber picks the next number in the group's block under auto
// assignment. Manual mode returns zero and lets the headend decide.
func (s *Service) nextChannelNumber(ctx context.Context, group *store.Group) (float64, error) {
	if group.ChannelAssignmentMode != store.AssignAuto || group.ChannelStartNumber <= 0 {
		return 0, nil
	}
	channels, err := s.store.ListChannels(ctx, group.ID)
	if err != nil {
		return 0, err
	}
	used := 0
	for _, ch := range channels {
		if ch.Status != store.ChannelDeleted && ch.ExternalID != 0 {
			used++
		}
	}
	return float64(group.ChannelStartNumber + used), nil
}

// pushStreams syncs an active channel's stream list to the headend.
func (s *Service) pushStreams(ctx context.Context, ch *store.ManagedChannel) error {
	if s.client == nil || ch.Status != store.ChannelActive || ch.ExternalID == 0 {
		return nil
	}
	_, err := s.client.UpdateChannel(ctx, ch.ExternalID, headend.ChannelSpec{
		Name:      ch.ChannelName,
		StreamIDs: ch.StreamIDs,
	})
	return err
}

// creationDue reports whether the group's create-timing policy allows
// creating a channel for an event starting at eventStart.
func (s *Service) creationDue(group *store.Group, eventStart, today time.Time) bool {
	eventDay := sports.Day(eventStart)
	switch group.CreateTiming {
	case store.CreateSameDay:
		return !sports.Day(today).Before(eventDay)
	case store.CreateDaysBefore:
		lead := group.CreateDaysBefore
		if lead < 0 {
			lead = 0
		}
		return !sports.Day(today).Before(eventDay.AddDate(0, 0, -lead))
	case store.CreateManual:
		return false
	default:
		return !sports.Day(today).Before(eventDay)
	}
}

// channelName builds the hosted channel's display name. The keyword label
// rides along for separate feeds ("TS: Celtics @ Knicks (Spanish)").
func (s *Service) channelName(event sports.Event, label string) string {
	away := teamDisplay(event.AwayTeam)
	home := teamDisplay(event.HomeTeam)
	name := s.cfg.NamePrefix + away + " @ " + home
	if label != "" {
		name += " (" + label + ")"
	}
	return name
}

func teamDisplay(team sports.Team) string {
	if team.ShortName != "" {
		return team.ShortName
	}
	return team.Name
}

// ScheduleDeletions marks the group's channels for teardown per the delete
// policy. activeStreamIDs is the current stream inventory; it only matters
// for the stream_removed policy. Returns the number newly scheduled.
func (s *Service) ScheduleDeletions(ctx context.Context, group *store.Group, activeStreamIDs map[int64]struct{}) (int, error) {
	channels, err := s.store.ListChannels(ctx, group.ID)
	if err != nil {
		return 0, err
	}

	scheduled := 0
	for _, ch := range channels {
		if ch.Status != store.ChannelActive && ch.Status != store.ChannelPendingCreate {
			continue
		}
		deadline, ok := s.deletionDeadline(group, ch, activeStreamIDs)
		if !ok {
			continue
		}
		ch.Status = store.ChannelPendingDelete
		ch.ScheduledDeletionAt = &deadline
		if err := s.store.UpdateChannel(ctx, ch); err != nil {
			return scheduled, err
		}
		scheduled++
	}
	return scheduled, nil
}

func (s *Service) deletionDeadline(group *store.Group, ch *store.ManagedChannel, activeStreamIDs map[int64]struct{}) (time.Time, bool) {
	eventEnd := ch.EventStart.Add(time.Duration(s.cfg.DefaultGameHours) * time.Hour)
	switch group.DeleteTiming {
	case store.DeleteEventEnd:
		return eventEnd, true
	case store.DeleteHoursAfter:
		return eventEnd.Add(time.Duration(group.DeleteHoursAfter) * time.Hour), true
	case store.DeleteStreamRemoved:
		if _, ok := activeStreamIDs[ch.PrimaryStreamID]; !ok {
			return s.now().UTC(), true
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// ProcessScheduledDeletions tears down channels whose deadline has passed.
// External deletion failures leave the row pending so the next pass retries;
// a channel never created externally is simply marked deleted.
func (s *Service) ProcessScheduledDeletions(ctx context.Context) (*DeletionResult, error) {
	due, err := s.store.ChannelsDueForDeletion(ctx, s.now().UTC())
	if err != nil {
		return nil, err
	}

	result := &DeletionResult{}
	for _, ch := range due {
		if s.client != nil && ch.ExternalID != 0 {
			if err := s.client.DeleteChannel(ctx, ch.ExternalID); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("channel %d: %v", ch.ID, err))
				continue
			}
		}
		ch.Status = store.ChannelDeleted
		if err := s.store.UpdateChannel(ctx, ch); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("channel %d: %v", ch.ID, err))
			continue
		}
		result.Deleted = append(result.Deleted, ch.ID)
		s.logger.Info("channel deleted",
			logging.Args(
				logging.Int64("channel_id", ch.ID),
				logging.Int64("external_id", ch.ExternalID),
			)...)
	}
	return result, nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

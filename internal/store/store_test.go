package store_test

import (
	"context"
	"testing"
	"time"

	"teamsync/internal/sports"
	"teamsync/internal/store"
	"teamsync/internal/testsupport"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testGroup() *store.Group {
	return &store.Group{
		Name:                   "NBA Games",
		Leagues:                []string{"nba"},
		DuplicateEventHandling: store.DuplicateConsolidate,
		ChannelAssignmentMode:  store.AssignAuto,
		CreateTiming:           store.CreateSameDay,
		DeleteTiming:           store.DeleteEventEnd,
		M3UGroupID:             7,
		ChannelGroupID:         3,
		ChannelStartNumber:     500,
		Active:                 true,
	}
}

func TestChannelRoundTrip(t *testing.T) {
	t.Parallel()

	st := testsupport.NewStore(t)
	ctx := context.Background()

	group, err := st.SaveGroup(ctx, testGroup())
	if err != nil {
		t.Fatalf("save group: %v", err)
	}

	start := time.Date(2026, 3, 10, 19, 0, 0, 0, time.UTC)
	ch, err := st.InsertChannel(ctx, &store.ManagedChannel{
		GroupID:         group.ID,
		PrimaryStreamID: 11,
		StreamIDs:       []int64{11, 12},
		EventID:         "evt-1",
		EventLeague:     "nba",
		EventStart:      start,
		ChannelName:     "TS: Celtics @ Knicks",
		Status:          store.ChannelPendingCreate,
	})
	if err != nil {
		t.Fatalf("insert channel: %v", err)
	}
	if ch.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if len(ch.StreamIDs) != 2 || ch.StreamIDs[0] != 11 {
		t.Fatalf("stream ids = %v", ch.StreamIDs)
	}
	if !ch.EventStart.Equal(start) {
		t.Fatalf("event start = %v, want %v", ch.EventStart, start)
	}

	byEvent, err := st.FindChannelByGroupEvent(ctx, group.ID, "evt-1")
	if err != nil {
		t.Fatalf("find by event: %v", err)
	}
	if byEvent == nil || byEvent.ID != ch.ID {
		t.Fatalf("find by event returned %+v", byEvent)
	}

	byStream, err := st.FindChannelByGroupStream(ctx, group.ID, 11)
	if err != nil {
		t.Fatalf("find by stream: %v", err)
	}
	if byStream == nil || byStream.ID != ch.ID {
		t.Fatalf("find by stream returned %+v", byStream)
	}

	ch.Status = store.ChannelDeleted
	if err := st.UpdateChannel(ctx, ch); err != nil {
		t.Fatalf("update channel: %v", err)
	}
	byEvent, err = st.FindChannelByGroupEvent(ctx, group.ID, "evt-1")
	if err != nil {
		t.Fatalf("find by event: %v", err)
	}
	if byEvent != nil {
		t.Fatal("deleted channels must not be found")
	}
}

func TestLabeledChannelHiddenFromEventLookup(t *testing.T) {
	t.Parallel()

	st := testsupport.NewStore(t)
	ctx := context.Background()

	group, err := st.SaveGroup(ctx, testGroup())
	if err != nil {
		t.Fatalf("save group: %v", err)
	}

	ch, err := st.InsertChannel(ctx, &store.ManagedChannel{
		GroupID:         group.ID,
		PrimaryStreamID: 21,
		StreamIDs:       []int64{21},
		EventID:         "evt-2",
		EventStart:      time.Date(2026, 3, 10, 19, 0, 0, 0, time.UTC),
		ChannelName:     "TS: Celtics @ Knicks (Spanish)",
		Label:           "Spanish",
		Status:          store.ChannelActive,
	})
	if err != nil {
		t.Fatalf("insert channel: %v", err)
	}

	got, err := st.GetChannel(ctx, ch.ID)
	if err != nil || got == nil {
		t.Fatalf("get channel: %v %v", got, err)
	}
	if got.Label != "Spanish" {
		t.Fatalf("label = %q", got.Label)
	}

	// The consolidate lookup never returns alternate-feed channels.
	byEvent, err := st.FindChannelByGroupEvent(ctx, group.ID, "evt-2")
	if err != nil {
		t.Fatalf("find by event: %v", err)
	}
	if byEvent != nil {
		t.Fatalf("labeled channel leaked into event lookup: %+v", byEvent)
	}

	byStream, err := st.FindChannelByGroupStream(ctx, group.ID, 21)
	if err != nil || byStream == nil || byStream.ID != ch.ID {
		t.Fatalf("find by stream returned %+v, %v", byStream, err)
	}
}

func TestChannelsDueForDeletion(t *testing.T) {
	t.Parallel()

	st := testsupport.NewStore(t)
	ctx := context.Background()

	group, err := st.SaveGroup(ctx, testGroup())
	if err != nil {
		t.Fatalf("save group: %v", err)
	}

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	insert := func(name string, deadline *time.Time, status store.ChannelStatus) {
		t.Helper()
		_, err := st.InsertChannel(ctx, &store.ManagedChannel{
			GroupID:             group.ID,
			PrimaryStreamID:     1,
			EventID:             name,
			EventStart:          now,
			ChannelName:         name,
			Status:              status,
			ScheduledDeletionAt: deadline,
		})
		if err != nil {
			t.Fatalf("insert %s: %v", name, err)
		}
	}
	insert("due", &past, store.ChannelPendingDelete)
	insert("not-yet", &future, store.ChannelPendingDelete)
	insert("active", &past, store.ChannelActive)

	due, err := st.ChannelsDueForDeletion(ctx, now)
	if err != nil {
		t.Fatalf("due for deletion: %v", err)
	}
	if len(due) != 1 || due[0].EventID != "due" {
		t.Fatalf("due = %+v", due)
	}
}

func TestCacheEventsPastOnly(t *testing.T) {
	t.Parallel()

	st := testsupport.NewStore(t)
	ctx := context.Background()
	today := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	st.SetClock(fixedClock(today))

	events := []sports.Event{{ID: "e1", League: "nba", Name: "Celtics at Knicks"}}

	// Today and future days are never persisted; their results can change.
	if err := st.CacheEvents(ctx, "espn", "nba", today, events); err != nil {
		t.Fatalf("cache today: %v", err)
	}
	if _, ok, _ := st.CachedEvents(ctx, "espn", "nba", today); ok {
		t.Fatal("today must not be cached")
	}

	yesterday := today.AddDate(0, 0, -1)
	if err := st.CacheEvents(ctx, "espn", "nba", yesterday, events); err != nil {
		t.Fatalf("cache yesterday: %v", err)
	}
	got, ok, err := st.CachedEvents(ctx, "espn", "nba", yesterday)
	if err != nil {
		t.Fatalf("cached events: %v", err)
	}
	if !ok || len(got) != 1 || got[0].ID != "e1" {
		t.Fatalf("got %v ok=%v", got, ok)
	}
}

func TestCacheEventsEmptyDayIsAHit(t *testing.T) {
	t.Parallel()

	st := testsupport.NewStore(t)
	ctx := context.Background()
	today := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	st.SetClock(fixedClock(today))

	day := today.AddDate(0, 0, -2)
	if err := st.CacheEvents(ctx, "espn", "nhl", day, nil); err != nil {
		t.Fatalf("cache empty day: %v", err)
	}
	got, ok, err := st.CachedEvents(ctx, "espn", "nhl", day)
	if err != nil {
		t.Fatalf("cached events: %v", err)
	}
	if !ok {
		t.Fatal("cached empty day must report a hit")
	}
	if len(got) != 0 {
		t.Fatalf("got %v, want empty", got)
	}
}

func TestCleanupOldEvents(t *testing.T) {
	t.Parallel()

	st := testsupport.NewStore(t)
	ctx := context.Background()
	today := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	st.SetClock(fixedClock(today))

	old := today.AddDate(0, 0, -200)
	recent := today.AddDate(0, 0, -10)
	if err := st.CacheEvents(ctx, "espn", "nba", old, nil); err != nil {
		t.Fatalf("cache old: %v", err)
	}
	if err := st.CacheEvents(ctx, "espn", "nba", recent, nil); err != nil {
		t.Fatalf("cache recent: %v", err)
	}

	removed, err := st.CleanupOldEvents(ctx, 180)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok, _ := st.CachedEvents(ctx, "espn", "nba", recent); !ok {
		t.Fatal("recent row should survive cleanup")
	}
}

func TestServiceCacheBackend(t *testing.T) {
	t.Parallel()

	st := testsupport.NewStore(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	if err := st.CachePut("k", `{"a":1}`, now.Add(time.Hour), now); err != nil {
		t.Fatalf("put: %v", err)
	}
	payload, expiresAt, ok, err := st.CacheGet("k")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if payload != `{"a":1}` {
		t.Fatalf("payload = %q", payload)
	}
	if !expiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("expires = %v", expiresAt)
	}

	total, expired, err := st.CacheCounts(now)
	if err != nil || total != 1 || expired != 0 {
		t.Fatalf("counts = %d/%d err=%v", total, expired, err)
	}

	removed, err := st.CacheDeleteExpired(now.Add(2 * time.Hour))
	if err != nil || removed != 1 {
		t.Fatalf("delete expired = %d err=%v", removed, err)
	}
}

func TestKeywordsRoundTrip(t *testing.T) {
	t.Parallel()

	st := testsupport.NewStore(t)
	ctx := context.Background()

	id, err := st.SaveKeyword(ctx, &store.Keyword{
		Terms:    []string{"(ESP)", "Spanish"},
		Label:    "Spanish",
		Behavior: "separate",
		Enabled:  true,
	})
	if err != nil {
		t.Fatalf("save keyword: %v", err)
	}
	if _, err := st.SaveKeyword(ctx, &store.Keyword{
		Terms:    []string{"Replay"},
		Behavior: "ignore",
		Enabled:  false,
	}); err != nil {
		t.Fatalf("save disabled keyword: %v", err)
	}

	enabled, err := st.ListKeywords(ctx, false)
	if err != nil {
		t.Fatalf("list keywords: %v", err)
	}
	if len(enabled) != 1 || enabled[0].ID != id {
		t.Fatalf("enabled = %+v", enabled)
	}
	if len(enabled[0].Terms) != 2 || enabled[0].Terms[0] != "(ESP)" {
		t.Fatalf("terms = %v", enabled[0].Terms)
	}

	all, err := st.ListKeywords(ctx, true)
	if err != nil {
		t.Fatalf("list all keywords: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all = %d, want 2", len(all))
	}
}

func TestListGroupsSkipsInactive(t *testing.T) {
	t.Parallel()

	st := testsupport.NewStore(t)
	ctx := context.Background()

	if _, err := st.SaveGroup(ctx, testGroup()); err != nil {
		t.Fatalf("save active: %v", err)
	}
	inactive := testGroup()
	inactive.Name = "Archived"
	inactive.Active = false
	if _, err := st.SaveGroup(ctx, inactive); err != nil {
		t.Fatalf("save inactive: %v", err)
	}

	active, err := st.ListGroups(ctx, false)
	if err != nil {
		t.Fatalf("list groups: %v", err)
	}
	if len(active) != 1 || active[0].Name != "NBA Games" {
		t.Fatalf("active = %+v", active)
	}
	all, err := st.ListGroups(ctx, true)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all = %d, want 2", len(all))
	}
}

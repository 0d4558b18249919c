package ttlcache

import (
	"testing"
	"time"
)

type memBackend struct {
	rows map[string]memRow
}

type memRow struct {
	payload   string
	expiresAt time.Time
}

func newMemBackend() *memBackend {
	return &memBackend{rows: make(map[string]memRow)}
}

func (b *memBackend) CacheGet(key string) (string, time.Time, bool, error) {
	row, ok := b.rows[key]
	if !ok {
		return "", time.Time{}, false, nil
	}
	return row.payload, row.expiresAt, true, nil
}

func (b *memBackend) CachePut(key, payload string, expiresAt, createdAt time.Time) error {
	b.rows[key] = memRow{payload: payload, expiresAt: expiresAt}
	return nil
}

func (b *memBackend) CacheDelete(key string) error {
	delete(b.rows, key)
	return nil
}

func (b *memBackend) CacheClear() error {
	b.rows = make(map[string]memRow)
	return nil
}

func (b *memBackend) CacheDeleteExpired(cutoff time.Time) (int, error) {
	removed := 0
	for key, row := range b.rows {
		if row.expiresAt.Before(cutoff) {
			delete(b.rows, key)
			removed++
		}
	}
	return removed, nil
}

func (b *memBackend) CacheCounts(now time.Time) (int, int, error) {
	expired := 0
	for _, row := range b.rows {
		if row.expiresAt.Before(now) {
			expired++
		}
	}
	return len(b.rows), expired, nil
}

func TestPersistentRoundTrip(t *testing.T) {
	t.Parallel()

	p := NewPersistent(newMemBackend(), time.Hour, nil)

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	p.Set("k", payload{Name: "celtics", Count: 3}, 0)

	var out payload
	if !p.Get("k", &out) {
		t.Fatal("expected hit")
	}
	if out.Name != "celtics" || out.Count != 3 {
		t.Fatalf("got %+v", out)
	}
}

func TestPersistentExpiry(t *testing.T) {
	t.Parallel()

	backend := newMemBackend()
	p := NewPersistent(backend, time.Hour, nil)
	now, advance := newTestClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	p.now = now

	p.Set("k", "v", 10*time.Minute)
	advance(11 * time.Minute)

	var out string
	if p.Get("k", &out) {
		t.Fatal("expected miss after expiry")
	}
	if _, ok := backend.rows["k"]; ok {
		t.Fatal("expired row should be deleted on read")
	}
}

func TestPersistentCorruptPayload(t *testing.T) {
	t.Parallel()

	backend := newMemBackend()
	p := NewPersistent(backend, time.Hour, nil)

	backend.rows["bad"] = memRow{payload: "{not json", expiresAt: time.Now().Add(time.Hour)}

	var out map[string]string
	if p.Get("bad", &out) {
		t.Fatal("corrupt payload must report a miss")
	}
	if _, ok := backend.rows["bad"]; ok {
		t.Fatal("corrupt row should be deleted")
	}

	stats, err := p.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Misses != 1 {
		t.Fatalf("misses = %d, want 1", stats.Misses)
	}
}

func TestPersistentCleanupExpired(t *testing.T) {
	t.Parallel()

	backend := newMemBackend()
	p := NewPersistent(backend, time.Hour, nil)
	now, advance := newTestClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	p.now = now

	p.Set("a", 1, time.Minute)
	p.Set("b", 2, time.Hour)
	advance(2 * time.Minute)

	removed, err := p.CleanupExpired()
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
}

// Package progress tracks the state of long-running sync work and streams
// status snapshots to observers. One tracker covers one kind of work; only
// a single run may be in flight at a time.
package progress

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"teamsync/internal/services"
)

// Run states.
const (
	StateIdle     = "idle"
	StateRunning  = "running"
	StateComplete = "complete"
	StateError    = "error"
)

// Status is a point-in-time snapshot of tracked work.
type Status struct {
	SessionID string    `json:"session_id,omitempty"`
	State     string    `json:"state"`
	Stage     string    `json:"stage,omitempty"`
	Message   string    `json:"message,omitempty"`
	Percent   float64   `json:"percent"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
	Heartbeat bool      `json:"heartbeat,omitempty"`
	Final     bool      `json:"final,omitempty"`
}

// Tracker is a mutex-guarded status holder.
type Tracker struct {
	mu     sync.Mutex
	status Status
	now    func() time.Time
}

// NewTracker returns an idle tracker.
func NewTracker() *Tracker {
	return &Tracker{
		status: Status{State: StateIdle},
		now:    time.Now,
	}
}

// Begin transitions to running. It fails fast when a run is already in
// flight; callers must not queue behind one.
func (t *Tracker) Begin(stage string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.State == StateRunning {
		return services.Wrap(services.ErrValidation, "progress", "begin", "run already in progress", nil)
	}
	now := t.now().UTC()
	t.status = Status{
		SessionID: uuid.NewString(),
		State:     StateRunning,
		Stage:     stage,
		StartedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// Update records progress within the current run.
func (t *Tracker) Update(stage, message string, percent float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.State != StateRunning {
		return
	}
	t.status.Stage = stage
	t.status.Message = message
	t.status.Percent = percent
	t.status.UpdatedAt = t.now().UTC()
}

// Complete marks the run finished.
func (t *Tracker) Complete(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.State = StateComplete
	t.status.Message = message
	t.status.Percent = 100
	t.status.UpdatedAt = t.now().UTC()
}

// Fail marks the run failed.
func (t *Tracker) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.State = StateError
	if err != nil {
		t.status.Error = err.Error()
	}
	t.status.UpdatedAt = t.now().UTC()
}

// Snapshot returns a copy of the current status.
func (t *Tracker) Snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// streamBuffer bounds the status channel; a slow consumer drops heartbeats
// rather than blocking the run.
const streamBuffer = 16

// Stream runs job on a worker goroutine and returns a channel of status
// snapshots: heartbeats while the job runs, then exactly one snapshot with
// Final set once it ends. On context cancellation the worker gets a bounded
// join wait; the final snapshot is emitted regardless of how the job ended.
// The channel is closed after the final snapshot.
func Stream(ctx context.Context, tracker *Tracker, heartbeat, joinWait time.Duration, job func(context.Context) error) (<-chan Status, error) {
	if err := tracker.Begin("starting"); err != nil {
		return nil, err
	}
	if heartbeat <= 0 {
		heartbeat = time.Second
	}
	if joinWait <= 0 {
		joinWait = 5 * time.Second
	}

	out := make(chan Status, streamBuffer)
	done := make(chan error, 1)

	go func() {
		done <- job(ctx)
	}()

	go func() {
		defer close(out)
		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		finish := func(err error) {
			if err != nil {
				tracker.Fail(err)
			} else {
				tracker.Complete("")
			}
			final := tracker.Snapshot()
			final.Final = true
			select {
			case out <- final:
			default:
				// Buffer full of unread heartbeats: drain one slot so the
				// final status always lands.
				select {
				case <-out:
				default:
				}
				out <- final
			}
		}

		for {
			select {
			case err := <-done:
				finish(err)
				return
			case <-ticker.C:
				snap := tracker.Snapshot()
				snap.Heartbeat = true
				select {
				case out <- snap:
				default:
				}
			case <-ctx.Done():
				select {
				case err := <-done:
					finish(err)
				case <-time.After(joinWait):
					finish(ctx.Err())
				}
				return
			}
		}
	}()

	return out, nil
}

package progress

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBeginFailsFastWhenRunning(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	if err := tr.Begin("first"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := tr.Begin("second"); err == nil {
		t.Fatal("second begin must fail while running")
	}

	tr.Complete("done")
	if err := tr.Begin("third"); err != nil {
		t.Fatalf("begin after completion: %v", err)
	}
}

func TestTrackerLifecycle(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	if snap := tr.Snapshot(); snap.State != StateIdle {
		t.Fatalf("initial state = %s", snap.State)
	}

	if err := tr.Begin("matching"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	tr.Update("matching", "group 1 of 3", 33)

	snap := tr.Snapshot()
	if snap.State != StateRunning || snap.Percent != 33 || snap.Message != "group 1 of 3" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.SessionID == "" {
		t.Fatal("session id missing")
	}

	tr.Fail(errors.New("boom"))
	snap = tr.Snapshot()
	if snap.State != StateError || snap.Error != "boom" {
		t.Fatalf("snapshot after fail = %+v", snap)
	}
}

func TestUpdateIgnoredWhenNotRunning(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.Update("stage", "message", 50)
	if snap := tr.Snapshot(); snap.State != StateIdle || snap.Percent != 0 {
		t.Fatalf("idle tracker mutated: %+v", snap)
	}
}

func collectFinal(t *testing.T, ch <-chan Status) Status {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case status, ok := <-ch:
			if !ok {
				t.Fatal("channel closed without a final status")
			}
			if status.Final {
				return status
			}
		case <-deadline:
			t.Fatal("timed out waiting for final status")
		}
	}
}

func TestStreamEmitsFinalOnSuccess(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	ch, err := Stream(context.Background(), tr, 10*time.Millisecond, time.Second, func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	final := collectFinal(t, ch)
	if final.State != StateComplete {
		t.Fatalf("final state = %s", final.State)
	}
	// Channel closes after the final status.
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel after final status")
	}
}

func TestStreamEmitsFinalOnWorkerFailure(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	ch, err := Stream(context.Background(), tr, 10*time.Millisecond, time.Second, func(ctx context.Context) error {
		return errors.New("worker failed")
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	final := collectFinal(t, ch)
	if final.State != StateError || final.Error != "worker failed" {
		t.Fatalf("final = %+v", final)
	}
}

func TestStreamHeartbeatsWhileRunning(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	release := make(chan struct{})
	ch, err := Stream(context.Background(), tr, 5*time.Millisecond, time.Second, func(ctx context.Context) error {
		<-release
		return nil
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	deadline := time.After(5 * time.Second)
	sawHeartbeat := false
	for !sawHeartbeat {
		select {
		case status := <-ch:
			if status.Heartbeat {
				sawHeartbeat = true
			}
		case <-deadline:
			t.Fatal("no heartbeat observed")
		}
	}
	close(release)
	collectFinal(t, ch)
}

func TestStreamRejectsConcurrentRun(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	release := make(chan struct{})
	ch, err := Stream(context.Background(), tr, 10*time.Millisecond, time.Second, func(ctx context.Context) error {
		<-release
		return nil
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if _, err := Stream(context.Background(), tr, 10*time.Millisecond, time.Second, func(ctx context.Context) error {
		return nil
	}); err == nil {
		t.Fatal("second stream on a running tracker must fail")
	}
	close(release)
	collectFinal(t, ch)
}

func TestStreamBoundedJoinOnCancel(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	ctx, cancel := context.WithCancel(context.Background())
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	ch, err := Stream(ctx, tr, 10*time.Millisecond, 50*time.Millisecond, func(ctx context.Context) error {
		<-block // never finishes on its own
		return nil
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	cancel()
	final := collectFinal(t, ch)
	if final.State != StateError {
		t.Fatalf("final state after cancel = %s", final.State)
	}
}

package daemon_test

import (
	"context"
	"errors"
	"testing"

	"teamsync/internal/daemon"
	"teamsync/internal/services"
	"teamsync/internal/store"
	"teamsync/internal/testsupport"
)

func TestNewWiresComponents(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	d, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	if d.Store() == nil || d.Processor() == nil || d.Lifecycle() == nil || d.Scheduler() == nil {
		t.Fatal("core components missing")
	}
	if d.Notifier() == nil {
		t.Fatal("notifier missing")
	}
	// No headend URL configured, so there is nothing to reconcile against.
	if d.Reconciler() != nil {
		t.Fatal("reconciler wired without a headend")
	}

	status := d.Status()
	if status.Running {
		t.Fatal("daemon reports running before start")
	}
	if status.DatabasePath != cfg.DatabasePath() {
		t.Fatalf("database path = %q", status.DatabasePath)
	}
}

func TestNewWiresReconcilerWithHeadend(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	cfg.Headend.URL = "http://headend.local:5656"
	d, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	if d.Reconciler() == nil {
		t.Fatal("reconciler missing with a configured headend")
	}
}

func TestSecondInstanceIsRejected(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	first, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("first instance: %v", err)
	}
	t.Cleanup(func() { first.Close() })

	// Same data dir, same lock file.
	second := *cfg
	if _, err := daemon.New(&second, nil); err == nil {
		t.Fatal("second instance must fail to acquire the lock")
	} else if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("lock contention not a configuration error: %v", err)
	}
}

func TestStartStopIdleWithoutScheduler(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	d, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	if err := d.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := d.Start(); err == nil {
		t.Fatal("second start must fail")
	}
	if !d.Status().Running {
		t.Fatal("status must report running")
	}
	if err := d.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if d.Status().Running {
		t.Fatal("status must report stopped")
	}
}

func TestCloseReleasesLock(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	d, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	// A keyword row proves the same database reopens after close.
	if _, err := d.Store().SaveKeyword(context.Background(), &store.Keyword{
		Terms: []string{"replay"}, Behavior: "ignore", Enabled: true,
	}); err != nil {
		t.Fatalf("save keyword: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("reopen after close: %v", err)
	}
	t.Cleanup(func() { reopened.Close() })

	rows, err := reopened.Store().ListKeywords(context.Background(), false)
	if err != nil {
		t.Fatalf("list keywords: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("keywords = %d", len(rows))
	}
}

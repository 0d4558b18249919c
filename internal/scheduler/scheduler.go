// Package scheduler drives recurring sync runs on a cron expression. Each
// tick processes all groups, sweeps scheduled deletions, optionally
// reconciles, and cleans expired cache entries.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"teamsync/internal/lifecycle"
	"teamsync/internal/logging"
	"teamsync/internal/notifications"
	"teamsync/internal/processor"
	"teamsync/internal/progress"
	"teamsync/internal/reconcile"
	"teamsync/internal/store"
	"teamsync/internal/ttlcache"
)

// Config controls what a scheduled run does.
type Config struct {
	CronExpression       string
	Reconcile            bool
	AutoFix              bool
	EventCacheMaxAgeDays int
}

// CacheCleanup reports what a run's cleanup step removed.
type CacheCleanup struct {
	DurableRemoved    int
	HistoricalRemoved int
}

// RunResult is the outcome of one scheduled or manual run.
type RunResult struct {
	StartedAt      time.Time
	FinishedAt     time.Time
	Batch          *processor.BatchProcessingResult
	Deletions      *lifecycle.DeletionResult
	Reconciliation *reconcile.Summary
	CacheCleanup   CacheCleanup
	Errors         []string
}

// Status is a scheduler snapshot.
type Status struct {
	Running        bool
	CronExpression string
	LastRun        *time.Time
	NextRun        *time.Time
}

// Scheduler owns the cron loop and the composition of one run.
type Scheduler struct {
	cfg        Config
	processor  *processor.Processor
	lifecycle  *lifecycle.Service
	reconciler *reconcile.Service
	durable    *ttlcache.Persistent
	store      *store.Store
	notifier   notifications.Service
	tracker    *progress.Tracker
	logger     *slog.Logger

	cron    *cron.Cron
	entryID cron.EntryID

	mu      sync.Mutex
	running bool
	lastRun *RunResult
}

// New wires the scheduler. The reconciler and durable cache may be nil,
// which skips those run steps.
func New(cfg Config, proc *processor.Processor, lc *lifecycle.Service, rec *reconcile.Service, durable *ttlcache.Persistent, st *store.Store, notifier notifications.Service, logger *slog.Logger) *Scheduler {
	if cfg.EventCacheMaxAgeDays <= 0 {
		cfg.EventCacheMaxAgeDays = 180
	}
	if notifier == nil {
		notifier = notifications.New(notifications.Config{})
	}
	return &Scheduler{
		cfg:        cfg,
		processor:  proc,
		lifecycle:  lc,
		reconciler: rec,
		durable:    durable,
		store:      st,
		notifier:   notifier,
		tracker:    progress.NewTracker(),
		logger:     logging.NewComponentLogger(logger, "scheduler"),
	}
}

// Start begins the cron loop. Overlapping ticks are skipped, not queued.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	entryID, err := c.AddFunc(s.cfg.CronExpression, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			s.logger.Error("scheduled run failed", logging.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", s.cfg.CronExpression, err)
	}

	s.cron = c
	s.entryID = entryID
	s.running = true
	c.Start()
	s.logger.Info("scheduler started", logging.String("cron", s.cfg.CronExpression))
	return nil
}

// Stop halts the cron loop and waits up to timeout for an in-flight run.
func (s *Scheduler) Stop(timeout time.Duration) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.running = false
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("scheduler stop timed out after %s", timeout)
	}
}

// Status reports the scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		Running:        s.running,
		CronExpression: s.cfg.CronExpression,
	}
	if s.lastRun != nil {
		finished := s.lastRun.FinishedAt
		status.LastRun = &finished
	}
	if s.cron != nil {
		next := s.cron.Entry(s.entryID).Next
		if !next.IsZero() {
			status.NextRun = &next
		}
	}
	return status
}

// LastRun returns the most recent run result, or nil before the first run.
func (s *Scheduler) LastRun() *RunResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// Progress exposes the run tracker for status streaming.
func (s *Scheduler) Progress() *progress.Tracker {
	return s.tracker
}

// RunOnce executes one full run immediately. A run already in flight is
// rejected, never queued.
func (s *Scheduler) RunOnce(ctx context.Context) (*RunResult, error) {
	if err := s.tracker.Begin("processing groups"); err != nil {
		return nil, err
	}
	result := &RunResult{StartedAt: time.Now().UTC()}

	batch, err := s.processor.ProcessAllGroups(ctx, result.StartedAt)
	if err != nil {
		result.Errors = append(result.Errors, "process groups: "+err.Error())
		s.notifyError(ctx, "process groups", err)
	} else {
		result.Batch = batch
	}

	s.tracker.Update("scheduled deletions", "", 40)
	deletions, err := s.lifecycle.ProcessScheduledDeletions(ctx)
	if err != nil {
		result.Errors = append(result.Errors, "scheduled deletions: "+err.Error())
		s.notifyError(ctx, "scheduled deletions", err)
	} else {
		result.Deletions = deletions
	}

	s.tracker.Update("reconciling", "", 60)
	if s.cfg.Reconcile && s.reconciler != nil {
		summary, err := s.reconciler.Run(ctx, reconcile.Options{AutoFix: s.cfg.AutoFix})
		if err != nil {
			result.Errors = append(result.Errors, "reconcile: "+err.Error())
			s.notifyError(ctx, "reconcile", err)
		} else {
			result.Reconciliation = summary
			if err := s.notifier.NotifyReconciliation(ctx, summary); err != nil {
				s.logger.Warn("reconciliation notification failed", logging.Error(err))
			}
		}
	}

	s.tracker.Update("cache cleanup", "", 80)
	result.CacheCleanup = s.cleanupCaches(ctx, result)
	result.FinishedAt = time.Now().UTC()

	if len(result.Errors) > 0 {
		s.tracker.Fail(fmt.Errorf("run finished with %d errors", len(result.Errors)))
	} else {
		s.tracker.Complete("run finished")
	}

	s.mu.Lock()
	s.lastRun = result
	s.mu.Unlock()

	if result.Batch != nil {
		if err := s.notifier.NotifyRunCompleted(ctx, result.Batch); err != nil {
			s.logger.Warn("run notification failed", logging.Error(err))
		}
	}

	s.logger.Info("run finished",
		logging.Args(
			logging.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)),
			logging.Int("errors", len(result.Errors)),
		)...)
	return result, nil
}

func (s *Scheduler) cleanupCaches(ctx context.Context, result *RunResult) CacheCleanup {
	var cleanup CacheCleanup
	if s.durable != nil {
		removed, err := s.durable.CleanupExpired()
		if err != nil {
			result.Errors = append(result.Errors, "durable cache cleanup: "+err.Error())
		} else {
			cleanup.DurableRemoved = removed
		}
	}
	if s.store != nil {
		removed, err := s.store.CleanupOldEvents(ctx, s.cfg.EventCacheMaxAgeDays)
		if err != nil {
			result.Errors = append(result.Errors, "historical cache cleanup: "+err.Error())
		} else {
			cleanup.HistoricalRemoved = removed
		}
	}
	return cleanup
}

func (s *Scheduler) notifyError(ctx context.Context, operation string, err error) {
	if nerr := s.notifier.NotifyError(ctx, operation, err); nerr != nil {
		s.logger.Warn("error notification failed", logging.Error(nerr))
	}
}

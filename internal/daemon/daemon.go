// Package daemon assembles the running service: single-instance lock,
// store, caches, matching engine, lifecycle, reconciler, scheduler, and
// notifications, with a clean start/stop lifecycle.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"teamsync/internal/config"
	"teamsync/internal/fuzzymatch"
	"teamsync/internal/headend"
	"teamsync/internal/keywords"
	"teamsync/internal/lifecycle"
	"teamsync/internal/logging"
	"teamsync/internal/matchcache"
	"teamsync/internal/notifications"
	"teamsync/internal/processor"
	"teamsync/internal/provider"
	"teamsync/internal/reconcile"
	"teamsync/internal/scheduler"
	"teamsync/internal/services"
	"teamsync/internal/store"
	"teamsync/internal/ttlcache"
)

const stopTimeout = 30 * time.Second

// Status is a daemon snapshot.
type Status struct {
	Running      bool
	DatabasePath string
	LockPath     string
	Scheduler    scheduler.Status
}

// Daemon owns every long-lived component of the service.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	lock       *flock.Flock
	store      *store.Store
	memory     *ttlcache.Cache
	durable    *ttlcache.Persistent
	client     headend.Client
	matches    *matchcache.Service
	lifecycle  *lifecycle.Service
	reconciler *reconcile.Service
	processor  *processor.Processor
	scheduler  *scheduler.Scheduler
	notifier   notifications.Service

	mu      sync.Mutex
	running bool
}

// New acquires the single-instance lock and wires all components. The
// caller must Close the daemon to release the lock.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "daemon", "new", "config is nil", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "daemon", "new", "create directories", err)
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "teamsync.lock")
	lock := flock.New(lockPath)
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "daemon", "new", "acquire lock", err)
	}
	if !acquired {
		return nil, services.Wrap(services.ErrConfiguration, "daemon", "new",
			fmt.Sprintf("another instance holds %s", lockPath), nil)
	}

	st, err := store.Open(cfg)
	if err != nil {
		lock.Unlock()
		return nil, err
	}

	d := &Daemon{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "daemon"),
		lock:   lock,
		store:  st,
	}
	if err := d.wire(logger); err != nil {
		st.Close()
		lock.Unlock()
		return nil, err
	}
	return d, nil
}

func (d *Daemon) wire(logger *slog.Logger) error {
	cfg := d.cfg

	d.memory = ttlcache.New(ttlcache.TTLEvents, cfg.Matching.MemoryCacheSize)
	d.durable = ttlcache.NewPersistent(d.store, ttlcache.TTLEvents, logger)

	if cfg.Headend.URL != "" {
		d.client = headend.NewHTTPClient(
			cfg.Headend.URL,
			cfg.Headend.APIToken,
			time.Duration(cfg.Headend.RequestTimeout)*time.Second,
		)
	}

	kwRows, err := d.store.ListKeywords(context.Background(), false)
	if err != nil {
		return err
	}
	kwMatcher, err := keywords.NewMatcher(keywordsFromStore(kwRows))
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "daemon", "wire", "compile keywords", err)
	}

	matcher := &fuzzymatch.Matcher{
		Threshold:        cfg.Matching.Threshold,
		PartialThreshold: cfg.Matching.PartialThreshold,
	}
	d.matches = matchcache.NewService(matcher, kwMatcher, matchcache.NewCache(), logger)

	d.lifecycle = lifecycle.NewService(d.store, d.client, lifecycle.Config{
		NamePrefix:       cfg.Channels.NamePrefix,
		DefaultGameHours: cfg.Channels.DefaultGameHours,
	}, logger)

	if d.client != nil {
		d.reconciler = reconcile.NewService(d.store, d.client, cfg.Channels.NamePrefix, logger)
	}

	upstream := provider.NewScoreboard("", time.Duration(cfg.Headend.RequestTimeout)*time.Second)
	cached := provider.NewCached(upstream, d.memory, d.durable, d.store, logger)

	d.processor = processor.New(d.store, cached, d.matches, d.lifecycle, d.client, logger)

	d.notifier = notifications.New(notifications.Config{
		NtfyTopic:      cfg.Notifications.NtfyTopic,
		RequestTimeout: time.Duration(cfg.Notifications.RequestTimeout) * time.Second,
		Runs:           cfg.Notifications.Runs,
		Reconciliation: cfg.Notifications.Reconciliation,
		Errors:         cfg.Notifications.Errors,
	})

	d.scheduler = scheduler.New(scheduler.Config{
		CronExpression:       cfg.Scheduler.CronExpression,
		Reconcile:            cfg.Scheduler.Reconcile,
		AutoFix:              cfg.Scheduler.AutoFix,
		EventCacheMaxAgeDays: cfg.Channels.EventCacheMaxAgeDays,
	}, d.processor, d.lifecycle, d.reconciler, d.durable, d.store, d.notifier, logger)

	return nil
}

func keywordsFromStore(rows []store.Keyword) []keywords.Keyword {
	out := make([]keywords.Keyword, 0, len(rows))
	for _, row := range rows {
		out = append(out, keywords.Keyword{
			ID:       row.ID,
			Terms:    row.Terms,
			Label:    row.Label,
			Behavior: row.Behavior,
			Enabled:  row.Enabled,
		})
	}
	return out
}

// Start begins scheduled operation when the scheduler is enabled.
func (d *Daemon) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return fmt.Errorf("daemon already started")
	}
	if d.cfg.Scheduler.Enabled {
		if err := d.scheduler.Start(); err != nil {
			return err
		}
	} else {
		d.logger.Info("scheduler disabled; daemon idle until commanded")
	}
	d.running = true
	d.logger.Info("daemon started", logging.String("database", d.cfg.DatabasePath()))
	return nil
}

// Stop halts scheduled operation, waiting for an in-flight run.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return nil
	}
	d.running = false
	if d.cfg.Scheduler.Enabled {
		return d.scheduler.Stop(stopTimeout)
	}
	return nil
}

// Close stops the daemon and releases the store and lock.
func (d *Daemon) Close() error {
	stopErr := d.Stop()
	if err := d.store.Close(); err != nil && stopErr == nil {
		stopErr = err
	}
	if err := d.lock.Unlock(); err != nil && stopErr == nil {
		stopErr = err
	}
	return stopErr
}

// Status reports the daemon state.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	running := d.running
	d.mu.Unlock()
	return Status{
		Running:      running,
		DatabasePath: d.cfg.DatabasePath(),
		LockPath:     d.lock.Path(),
		Scheduler:    d.scheduler.Status(),
	}
}

// Store exposes the backing store for CLI commands.
func (d *Daemon) Store() *store.Store { return d.store }

// Scheduler exposes the scheduler for CLI commands.
func (d *Daemon) Scheduler() *scheduler.Scheduler { return d.scheduler }

// Processor exposes the orchestrator for CLI commands.
func (d *Daemon) Processor() *processor.Processor { return d.processor }

// Lifecycle exposes the lifecycle service for CLI commands.
func (d *Daemon) Lifecycle() *lifecycle.Service { return d.lifecycle }

// Reconciler exposes the reconciler, nil without a headend client.
func (d *Daemon) Reconciler() *reconcile.Service { return d.reconciler }

// Notifier exposes the notification service.
func (d *Daemon) Notifier() notifications.Service { return d.notifier }

// MemoryCache exposes the in-memory provider cache.
func (d *Daemon) MemoryCache() *ttlcache.Cache { return d.memory }

// DurableCache exposes the durable provider cache.
func (d *Daemon) DurableCache() *ttlcache.Persistent { return d.durable }

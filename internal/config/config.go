// Package config loads and validates the teamsync TOML configuration.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Headend contains configuration for the external channel-management system.
type Headend struct {
	URL            string `toml:"url"`
	APIToken       string `toml:"api_token"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Matching contains thresholds and cache sizing for the match engine.
type Matching struct {
	Threshold        int `toml:"threshold"`
	PartialThreshold int `toml:"partial_threshold"`
	MemoryCacheSize  int `toml:"memory_cache_size"`
}

// Channels contains conventions for externally created channels.
type Channels struct {
	NamePrefix           string `toml:"name_prefix"`
	DefaultGameHours     int    `toml:"default_game_hours"`
	EventCacheMaxAgeDays int    `toml:"event_cache_max_age_days"`
}

// Scheduler contains configuration for the periodic control loop.
type Scheduler struct {
	Enabled        bool   `toml:"enabled"`
	CronExpression string `toml:"cron_expression"`
	Reconcile      bool   `toml:"reconcile"`
	AutoFix        bool   `toml:"auto_fix"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Runs           bool   `toml:"runs"`
	Reconciliation bool   `toml:"reconciliation"`
	Errors         bool   `toml:"errors"`
}

// Config is the root configuration document.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Logging       Logging       `toml:"logging"`
	Headend       Headend       `toml:"headend"`
	Matching      Matching      `toml:"matching"`
	Channels      Channels      `toml:"channels"`
	Scheduler     Scheduler     `toml:"scheduler"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	return expandPath("~/.config/teamsync/config.toml")
}

// Load reads configuration from path, falling back to defaults when the file
// does not exist. An unreadable or invalid file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath()
	}
	path = expandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg.normalize()
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteSample writes the embedded sample configuration to path.
func WriteSample(path string) error {
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %q already exists", path)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Matching.Threshold < 0 || c.Matching.Threshold > 100 {
		return fmt.Errorf("matching.threshold must be 0-100, got %d", c.Matching.Threshold)
	}
	if c.Matching.PartialThreshold < 0 || c.Matching.PartialThreshold > 100 {
		return fmt.Errorf("matching.partial_threshold must be 0-100, got %d", c.Matching.PartialThreshold)
	}
	if c.Matching.MemoryCacheSize < 0 {
		return fmt.Errorf("matching.memory_cache_size must not be negative, got %d", c.Matching.MemoryCacheSize)
	}
	if c.Headend.URL != "" && !strings.Contains(c.Headend.URL, "://") {
		return fmt.Errorf("headend.url %q is missing a scheme", c.Headend.URL)
	}
	if c.Scheduler.Enabled && strings.TrimSpace(c.Scheduler.CronExpression) == "" {
		return errors.New("scheduler.cron_expression required when scheduler is enabled")
	}
	return nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "teamsync.db")
}

func (c *Config) normalize() {
	c.Paths.DataDir = expandPath(c.Paths.DataDir)
	c.Paths.LogDir = expandPath(c.Paths.LogDir)
	c.Headend.URL = strings.TrimRight(strings.TrimSpace(c.Headend.URL), "/")
	if c.Headend.RequestTimeout <= 0 {
		c.Headend.RequestTimeout = defaultHeadendTimeout
	}
	if c.Channels.NamePrefix == "" {
		c.Channels.NamePrefix = defaultChannelNamePrefix
	}
	if c.Channels.DefaultGameHours <= 0 {
		c.Channels.DefaultGameHours = defaultGameHours
	}
	if c.Channels.EventCacheMaxAgeDays <= 0 {
		c.Channels.EventCacheMaxAgeDays = defaultEventCacheMaxAgeDays
	}
	if c.Matching.Threshold == 0 {
		c.Matching.Threshold = defaultMatchThreshold
	}
	if c.Matching.PartialThreshold == 0 {
		c.Matching.PartialThreshold = defaultPartialThreshold
	}
	if c.Matching.MemoryCacheSize == 0 {
		c.Matching.MemoryCacheSize = defaultMemoryCacheSize
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func expandPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Matching.Threshold != defaultMatchThreshold {
		t.Fatalf("threshold = %d", cfg.Matching.Threshold)
	}
	if cfg.Channels.NamePrefix != defaultChannelNamePrefix {
		t.Fatalf("prefix = %q", cfg.Channels.NamePrefix)
	}
	if cfg.Scheduler.Enabled {
		t.Fatal("scheduler must be off by default")
	}
	if !strings.HasSuffix(cfg.DatabasePath(), "teamsync.db") {
		t.Fatalf("database path = %q", cfg.DatabasePath())
	}
}

func TestLoadOverridesAndNormalizes(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[headend]
url = "http://headend.local:5656/"
api_token = "secret"

[matching]
threshold = 80

[channels]
name_prefix = "Sports: "
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Headend.URL != "http://headend.local:5656" {
		t.Fatalf("url not trimmed: %q", cfg.Headend.URL)
	}
	if cfg.Matching.Threshold != 80 {
		t.Fatalf("threshold = %d", cfg.Matching.Threshold)
	}
	if cfg.Matching.PartialThreshold != defaultPartialThreshold {
		t.Fatalf("partial threshold lost its default: %d", cfg.Matching.PartialThreshold)
	}
	if cfg.Channels.NamePrefix != "Sports: " {
		t.Fatalf("prefix = %q", cfg.Channels.NamePrefix)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("not toml ["), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"threshold too high", func(c *Config) { c.Matching.Threshold = 101 }, true},
		{"negative partial threshold", func(c *Config) { c.Matching.PartialThreshold = -1 }, true},
		{"negative cache size", func(c *Config) { c.Matching.MemoryCacheSize = -1 }, true},
		{"url without scheme", func(c *Config) { c.Headend.URL = "headend.local:5656" }, true},
		{"scheduler without cron", func(c *Config) {
			c.Scheduler.Enabled = true
			c.Scheduler.CronExpression = "  "
		}, true},
		{"scheduler with cron", func(c *Config) { c.Scheduler.Enabled = true }, false},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestWriteSample(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("write sample: %v", err)
	}

	// The sample must load cleanly and must not be overwritten.
	if _, err := Load(path); err != nil {
		t.Fatalf("load sample: %v", err)
	}
	if err := WriteSample(path); err == nil {
		t.Fatal("overwriting an existing config must fail")
	}
}

func TestExpandPath(t *testing.T) {
	t.Parallel()

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	if got := expandPath("~/data"); got != filepath.Join(home, "data") {
		t.Fatalf("expanded = %q", got)
	}
	if got := expandPath("/absolute/path"); got != "/absolute/path" {
		t.Fatalf("absolute mangled: %q", got)
	}
	if got := expandPath(""); got != "" {
		t.Fatalf("empty mangled: %q", got)
	}
}

package config

import "teamsync/internal/ttlcache"

const (
	defaultDataDir              = "~/.local/share/teamsync"
	defaultLogDir               = "~/.local/share/teamsync/logs"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultHeadendTimeout       = 15
	defaultMatchThreshold       = 85
	defaultPartialThreshold     = 90
	defaultMemoryCacheSize      = ttlcache.DefaultMaxSize
	defaultChannelNamePrefix    = "TS: "
	defaultGameHours            = 4
	defaultEventCacheMaxAgeDays = 180
	defaultCronExpression       = "0 * * * *"
	defaultNotifyTimeout        = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Headend: Headend{
			RequestTimeout: defaultHeadendTimeout,
		},
		Matching: Matching{
			Threshold:        defaultMatchThreshold,
			PartialThreshold: defaultPartialThreshold,
			MemoryCacheSize:  defaultMemoryCacheSize,
		},
		Channels: Channels{
			NamePrefix:           defaultChannelNamePrefix,
			DefaultGameHours:     defaultGameHours,
			EventCacheMaxAgeDays: defaultEventCacheMaxAgeDays,
		},
		Scheduler: Scheduler{
			Enabled:        false,
			CronExpression: defaultCronExpression,
			Reconcile:      true,
			AutoFix:        false,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Runs:           true,
			Reconciliation: true,
			Errors:         true,
		},
	}
}

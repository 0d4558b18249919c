package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"teamsync/internal/config"
	"teamsync/internal/daemon"
	"teamsync/internal/logging"
)

var configPath string

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "teamsync",
		Short: "Match live streams to sporting events and manage their channels",
		Long: `teamsync matches live-TV streams against sporting event schedules and
keeps externally hosted channels in sync: creating them when games are
due, consolidating duplicate feeds, and tearing them down afterwards.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	root.AddCommand(
		newDaemonCommand(),
		newRunCommand(),
		newReconcileCommand(),
		newDeletionsCommand(),
		newCacheCommand(),
		newStatusCommand(),
		newConfigCommand(),
		newNotifyCommand(),
	)
	return root
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// newLogger builds the process logger. The returned closer flushes the log
// file; callers defer it.
func newLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	return logging.NewFromConfig(logging.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		LogDir:  cfg.Paths.LogDir,
		LogFile: "teamsync.log",
	})
}

// openDaemon loads config, builds the logger, and wires the daemon for
// one-shot commands. Callers must close both.
func openDaemon() (*daemon.Daemon, io.Closer, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, closer, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	d, err := daemon.New(cfg, logger)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return d, closer, nil
}

// newTable returns a writer styled for the current output. Plain separators
// when stdout is not a terminal so output stays grep-friendly.
func newTable() table.Writer {
	w := table.NewWriter()
	w.SetOutputMirror(os.Stdout)
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		w.SetStyle(table.StyleLight)
	} else {
		w.SetStyle(table.StyleDefault)
	}
	return w
}

package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and scheduler state",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, closer, err := openDaemon()
			if err != nil {
				return err
			}
			defer closer.Close()
			defer d.Close()

			status := d.Status()

			w := newTable()
			w.AppendRow(table.Row{"Database", status.DatabasePath})
			w.AppendRow(table.Row{"Lock file", status.LockPath})
			w.AppendRow(table.Row{"Scheduler", schedulerState(status.Scheduler.Running)})
			w.AppendRow(table.Row{"Cron", status.Scheduler.CronExpression})
			if status.Scheduler.LastRun != nil {
				w.AppendRow(table.Row{"Last run", status.Scheduler.LastRun.Format("2006-01-02 15:04:05 MST")})
			}
			if status.Scheduler.NextRun != nil {
				w.AppendRow(table.Row{"Next run", status.Scheduler.NextRun.Format("2006-01-02 15:04:05 MST")})
			}
			w.Render()
			return nil
		},
	}
}

func schedulerState(running bool) string {
	if running {
		return "running"
	}
	return "stopped"
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"teamsync/internal/daemon"
	"teamsync/internal/processor"
	"teamsync/internal/progress"
	"teamsync/internal/scheduler"
)

func newRunCommand() *cobra.Command {
	var (
		groupID int64
		dateStr string
		watch   bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one sync pass immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now()
			if dateStr != "" {
				parsed, err := time.Parse("2006-01-02", dateStr)
				if err != nil {
					return fmt.Errorf("invalid --date %q: %w", dateStr, err)
				}
				day = parsed
			}

			d, closer, err := openDaemon()
			if err != nil {
				return err
			}
			defer closer.Close()
			defer d.Close()

			ctx := cmd.Context()

			if watch {
				return runWatched(ctx, d, groupID, day)
			}

			if groupID > 0 {
				result, err := d.Processor().ProcessGroup(ctx, groupID, day)
				if err != nil {
					return err
				}
				printGroupResults([]*processor.ProcessingResult{result})
				return nil
			}

			run, err := d.Scheduler().RunOnce(ctx)
			if err != nil {
				return err
			}
			printRunResult(run)
			return nil
		},
	}
	cmd.Flags().Int64Var(&groupID, "group", 0, "process a single group by id")
	cmd.Flags().StringVar(&dateStr, "date", "", "target date (YYYY-MM-DD), default today")
	cmd.Flags().BoolVar(&watch, "watch", false, "print progress while the run executes")
	return cmd
}

// runWatched executes the run on a worker and prints a status line per
// heartbeat until the final snapshot lands.
func runWatched(ctx context.Context, d *daemon.Daemon, groupID int64, day time.Time) error {
	tracker := progress.NewTracker()
	var (
		single *processor.ProcessingResult
		run    *scheduler.RunResult
		jobErr error
	)
	job := func(ctx context.Context) error {
		if groupID > 0 {
			tracker.Update("processing group", "", 10)
			single, jobErr = d.Processor().ProcessGroup(ctx, groupID, day)
			return jobErr
		}
		run, jobErr = d.Scheduler().RunOnce(ctx)
		return jobErr
	}

	statuses, err := progress.Stream(ctx, tracker, 2*time.Second, 10*time.Second, job)
	if err != nil {
		return err
	}
	for status := range statuses {
		if status.Final {
			if status.State == progress.StateError && jobErr == nil {
				jobErr = fmt.Errorf("%s", status.Error)
			}
			break
		}
		stage := status.Stage
		if groupID == 0 {
			// The full run keeps its own tracker; read it for the stage.
			if snap := d.Scheduler().Progress().Snapshot(); snap.State == progress.StateRunning {
				stage = snap.Stage
			}
		}
		fmt.Printf("%s (%s elapsed)\n", stage, time.Since(status.StartedAt).Round(time.Second))
	}
	if jobErr != nil {
		return jobErr
	}

	if single != nil {
		printGroupResults([]*processor.ProcessingResult{single})
	}
	if run != nil {
		printRunResult(run)
	}
	return nil
}

func printGroupResults(results []*processor.ProcessingResult) {
	w := newTable()
	w.AppendHeader(table.Row{"Group", "Streams", "Events", "Matched", "Unmatched", "Created", "Existing", "Skipped", "Errors"})
	for _, result := range results {
		created, existing, skipped := 0, 0, 0
		if result.Lifecycle != nil {
			created = len(result.Lifecycle.Created)
			existing = len(result.Lifecycle.Existing)
			skipped = result.Lifecycle.Skipped
		}
		w.AppendRow(table.Row{result.GroupName, result.StreamCount, result.EventCount,
			result.Match.Matched, result.Match.Unmatched, created, existing, skipped, len(result.Errors)})
	}
	w.Render()
}

func printRunResult(run *scheduler.RunResult) {
	if run.Batch != nil {
		printGroupResults(run.Batch.Groups)
	}
	if run.Deletions != nil && len(run.Deletions.Deleted) > 0 {
		fmt.Printf("deleted %d channels\n", len(run.Deletions.Deleted))
	}
	if run.Reconciliation != nil {
		fmt.Printf("reconciliation: %d issues, %d fixed\n",
			len(run.Reconciliation.Issues), run.Reconciliation.Fixed)
	}
	for _, msg := range run.Errors {
		fmt.Println("error:", msg)
	}
}

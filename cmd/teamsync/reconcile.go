package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"teamsync/internal/reconcile"
)

func newReconcileCommand() *cobra.Command {
	var (
		autoFix  bool
		groupIDs []int64
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare local channel records against the headend",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, closer, err := openDaemon()
			if err != nil {
				return err
			}
			defer closer.Close()
			defer d.Close()

			rec := d.Reconciler()
			if rec == nil {
				return fmt.Errorf("reconcile requires headend.url to be configured")
			}

			summary, err := rec.Run(cmd.Context(), reconcile.Options{
				AutoFix:  autoFix,
				GroupIDs: groupIDs,
			})
			if err != nil {
				return err
			}

			fmt.Printf("checked %d local records, %d external channels\n",
				summary.CheckedLocal, summary.CheckedExternal)
			if len(summary.Issues) == 0 {
				fmt.Println("everything in sync")
				return nil
			}

			w := newTable()
			w.AppendHeader(table.Row{"Type", "Severity", "Channel", "External", "Name", "Detail", "Suggested Action", "Fixed"})
			for _, issue := range summary.Issues {
				w.AppendRow(table.Row{issue.Type, issue.Severity, issue.ChannelID, issue.ExternalID, issue.Name, issue.Detail, issue.SuggestedAction, issue.Fixed})
			}
			w.Render()
			fmt.Printf("%d issues, %d fixed, %d skipped\n", len(summary.Issues), summary.Fixed, summary.Skipped)
			return nil
		},
	}
	cmd.Flags().BoolVar(&autoFix, "fix", false, "repair safely fixable issues")
	cmd.Flags().Int64SliceVar(&groupIDs, "group", nil, "limit to specific group ids")
	return cmd
}

package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clean the provider caches",
	}
	cmd.AddCommand(newCacheStatsCommand(), newCacheCleanupCommand())
	return cmd
}

func newCacheStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache entry counts and hit rates",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, closer, err := openDaemon()
			if err != nil {
				return err
			}
			defer closer.Close()
			defer d.Close()

			memStats := d.MemoryCache().Stats()
			durStats, err := d.DurableCache().Stats()
			if err != nil {
				return err
			}
			histStats, err := d.Store().EventCacheSummary(cmd.Context())
			if err != nil {
				return err
			}

			w := newTable()
			w.AppendHeader(table.Row{"Cache", "Entries", "Active", "Expired", "Hits", "Misses", "Hit Rate"})
			w.AppendRow(table.Row{"memory", memStats.TotalEntries, memStats.ActiveEntries, memStats.ExpiredEntries,
				memStats.Hits, memStats.Misses, fmt.Sprintf("%.0f%%", memStats.HitRate*100)})
			w.AppendRow(table.Row{"durable", durStats.TotalEntries, durStats.ActiveEntries, durStats.ExpiredEntries,
				durStats.Hits, durStats.Misses, fmt.Sprintf("%.0f%%", durStats.HitRate*100)})
			w.Render()

			fmt.Printf("historical events: %d entries, %d providers, %d leagues",
				histStats.TotalEntries, histStats.Providers, histStats.Leagues)
			if histStats.OldestDate != "" {
				fmt.Printf(" (%s to %s)", histStats.OldestDate, histStats.NewestDate)
			}
			fmt.Println()
			return nil
		},
	}
}

func newCacheCleanupCommand() *cobra.Command {
	var maxAgeDays int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired durable entries and old historical rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, closer, err := openDaemon()
			if err != nil {
				return err
			}
			defer closer.Close()
			defer d.Close()

			expired, err := d.DurableCache().CleanupExpired()
			if err != nil {
				return err
			}
			old, err := d.Store().CleanupOldEvents(cmd.Context(), maxAgeDays)
			if err != nil {
				return err
			}
			fmt.Printf("removed %d expired durable entries, %d old historical rows\n", expired, old)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxAgeDays, "max-age-days", 180, "historical rows older than this are removed")
	return cmd
}

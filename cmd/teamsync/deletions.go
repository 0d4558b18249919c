package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeletionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deletions",
		Short: "Delete channels whose scheduled teardown time has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, closer, err := openDaemon()
			if err != nil {
				return err
			}
			defer closer.Close()
			defer d.Close()

			result, err := d.Lifecycle().ProcessScheduledDeletions(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d channels\n", len(result.Deleted))
			for _, msg := range result.Errors {
				fmt.Println("error:", msg)
			}
			return nil
		},
	}
}

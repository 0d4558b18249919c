package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNotifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Notification helpers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Send a test notification to the configured topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, closer, err := openDaemon()
			if err != nil {
				return err
			}
			defer closer.Close()
			defer d.Close()

			if err := d.Notifier().Test(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("test notification sent")
			return nil
		},
	})
	return cmd
}

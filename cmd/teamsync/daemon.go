package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newDaemonCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the sync daemon until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, closer, err := openDaemon()
			if err != nil {
				return err
			}
			defer closer.Close()
			defer d.Close()

			if err := d.Start(); err != nil {
				return err
			}
			fmt.Println("teamsync daemon running; press Ctrl+C to stop")

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			fmt.Println("shutting down")
			return d.Stop()
		},
	}
}

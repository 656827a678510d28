package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload queued invoices once",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		if !c.Prober.Probe(cmd.Context()) {
			return fmt.Errorf("upload endpoint %s is not reachable", c.Config.ProbeURL())
		}
		res, err := c.Coordinator.SyncNow(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "attempted %d, synced %d, failed %d in %s\n",
			res.Attempted, res.Synced, res.Failed, res.Duration.Round(time.Millisecond))
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep syncing whenever connectivity returns, until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		go c.Prober.Run(ctx)

		fmt.Fprintf(cmd.OutOrStdout(), "watching %s, press Ctrl+C to stop\n", c.Config.ProbeURL())
		if err := c.Coordinator.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd, watchCmd)
}

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fleetops/igor/internal/conductor"
	"github.com/fleetops/igor/internal/config"
	"github.com/fleetops/igor/internal/gitlab"
)

// newWatchCommand polls the fleet and reports manager-set rotations. With
// --headless it exits after the first rotation, which makes it usable as a
// blocking step in deployment scripts.
func newWatchCommand(cfg *config.Config) *cobra.Command {
	var (
		filters  filterFlags
		headless bool
		interval time.Duration
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the fleet and report manager rotations",
		Example: `  # Block until one rotation is observed, checking every 15s
  igor watch --headless --interval 15s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.RequireToken(); err != nil {
				return err
			}
			if interval <= 0 {
				interval = cfg.PollInterval
			}
			if timeout <= 0 {
				timeout = cfg.PollTimeout
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			cond := conductor.New(gitlab.NewClient(cfg), conductor.Options{
				MaxPages:       cfg.MaxPages,
				Concurrency:    cfg.Concurrency,
				StaleThreshold: cfg.StaleThreshold,
			})

			fmt.Fprintf(cmd.ErrOrStderr(), "watching for rotations every %s (timeout %s)\n", interval, timeout)

			events, errs := cond.Watch(ctx, conductor.WatchOptions{
				Interval: interval,
				Filters:  filters.spec(cmd),
				Headless: headless,
			})

			green := color.New(color.FgGreen, color.Bold)
			for ev := range events {
				green.Fprintf(cmd.OutOrStdout(), "rotation detected at %s: runners %v\n",
					ev.ObservedAt.Format(time.RFC3339), ev.RunnerIDs)
			}
			if err := <-errs; err != nil {
				return err
			}
			if ctx.Err() == context.DeadlineExceeded {
				return fmt.Errorf("watch timed out after %s without observing a rotation", timeout)
			}
			return nil
		},
	}

	filters.register(cmd)
	cmd.Flags().BoolVar(&headless, "headless", false, "Exit successfully after the first rotation")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Poll interval (default from config)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up after this long (default from config)")
	return cmd
}

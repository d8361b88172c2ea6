package cli

import (
	"github.com/spf13/cobra"

	"github.com/fleetops/igor/internal/config"
	"github.com/fleetops/igor/internal/tui"
)

func newTUICommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse fleet reports interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.RequireToken(); err != nil {
				return err
			}
			return tui.Run(cfg)
		},
	}
}

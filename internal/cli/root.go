package cli

import (
	"github.com/spf13/cobra"

	"github.com/fleetops/igor/internal/config"
	"github.com/fleetops/igor/internal/conductor"
)

// Execute builds the command tree and runs it.
func Execute(cfg *config.Config) error {
	rootCmd := &cobra.Command{
		Use:   "igor",
		Short: "🔦 GitLab runner fleet reports",
		Long: `igor queries a GitLab-compatible fleet API, enriches every runner
with its manager processes, and derives health and rotation reports.

Quick Start:
  • List the fleet:        igor fetch
  • Health check:          igor lights
  • Offline runners:       igor switch
  • Manager processes:     igor workers
  • Watch for rotations:   igor watch --headless
  • Interactive browser:   igor tui`,
		Example: `  # Runners tagged prod and linux, newest major only
  igor fetch --tags prod,linux --version-prefix 17.

  # Health check as JSON
  igor lights --output json

  # Poll until one rotation is seen
  igor watch --headless`,
		SilenceUsage: true,
	}

	for _, command := range conductor.Commands {
		rootCmd.AddCommand(newReportCommand(cfg, command))
	}
	rootCmd.AddCommand(
		newWatchCommand(cfg),
		newTUICommand(cfg),
		newVersionCommand(),
	)

	return rootCmd.Execute()
}

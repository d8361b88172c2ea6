package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetops/igor/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetVersion())
			return nil
		},
	}
}

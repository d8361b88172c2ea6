package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/fleetops/igor/internal/conductor"
	"github.com/fleetops/igor/internal/config"
	"github.com/fleetops/igor/internal/gitlab"
)

// newReportCommand builds one subcommand per report. All reports share the
// same flag surface and pipeline; only the selection differs.
func newReportCommand(cfg *config.Config, command conductor.Command) *cobra.Command {
	var (
		filters      filterFlags
		outputFormat string
		maxPages     int
	)

	cmd := &cobra.Command{
		Use:   command.String(),
		Short: command.Description(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.RequireToken(); err != nil {
				return err
			}
			if maxPages > 0 {
				cfg.MaxPages = maxPages
			}

			cond := conductor.New(gitlab.NewClient(cfg), conductor.Options{
				MaxPages:       cfg.MaxPages,
				Concurrency:    cfg.Concurrency,
				StaleThreshold: cfg.StaleThreshold,
			})

			stop := startSpinner(fmt.Sprintf("Running %s report...", command))
			result, err := cond.Run(cmd.Context(), command, filters.spec(cmd))
			stop()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outputFormat == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			if command == conductor.CommandWorkers {
				renderManagerRows(out, result.ManagerRows)
			} else {
				renderRunners(out, result.Records)
			}
			renderDiagnostics(cmd.ErrOrStderr(), result.Diagnostics)
			return nil
		},
	}

	filters.register(cmd)
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "Override the page cap for this run")
	return cmd
}

// startSpinner spins on stderr while a report runs, but only when stderr
// is a terminal so piped output stays clean.
func startSpinner(message string) func() {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message
	s.Start()
	return s.Stop
}

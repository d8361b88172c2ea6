package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fleetops/igor/internal/conductor"
)

func renderRunners(out io.Writer, records []conductor.EnrichedRunner) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No runners matched")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDESCRIPTION\tTYPE\tSTATUS\tPAUSED\tVERSION\tMANAGERS\tTAGS")
	for _, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%v\t%s\t%s\t%s\n",
			r.ID,
			truncate(r.Description, 40),
			r.RunnerType,
			r.Status,
			r.Paused,
			r.Version,
			managerSummary(r),
			strings.Join(r.TagList, ","),
		)
	}
	w.Flush()
}

func renderManagerRows(out io.Writer, rows []conductor.ManagerRow) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "No manager processes found")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUNNER\tSYSTEM ID\tSTATUS\tVERSION\tPLATFORM\tLAST CONTACT")
	for _, row := range rows {
		contact := "never"
		if row.Manager.ContactedAt != nil {
			contact = row.Manager.ContactedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%d (%s)\t%s\t%s\t%s\t%s/%s\t%s\n",
			row.RunnerID,
			truncate(row.RunnerDescription, 30),
			row.Manager.SystemID,
			row.Manager.Status,
			row.Manager.Version,
			row.Manager.Platform,
			row.Manager.Architecture,
			contact,
		)
	}
	w.Flush()
}

// renderDiagnostics reports partial-result conditions on stderr so text
// output never silently hides them.
func renderDiagnostics(errOut io.Writer, d conductor.Diagnostics) {
	if d.EnrichmentFailures > 0 {
		fmt.Fprintf(errOut, "warning: %d runner(s) could not be enriched: %v\n", d.EnrichmentFailures, d.FailedIDs)
	}
	if d.PaginationTruncated {
		fmt.Fprintln(errOut, "warning: page cap reached, fleet listing may be incomplete")
	}
}

func managerSummary(r conductor.EnrichedRunner) string {
	if !r.Enriched() {
		return "enrich failed"
	}
	if len(r.Managers) == 0 {
		return "none"
	}
	online := 0
	for _, m := range r.Managers {
		if m.Online() {
			online++
		}
	}
	return fmt.Sprintf("%d/%d online", online, len(r.Managers))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

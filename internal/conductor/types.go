package conductor

import (
	"fmt"
	"strings"

	"github.com/fleetops/igor/internal/fleeterr"
	"github.com/fleetops/igor/internal/gitlab"
)

// EnrichedRunner is a runner summary augmented with its detail and manager
// list. Err marks a per-runner enrichment failure: such a runner carries no
// manager data and is excluded from every health classification, but stays
// in raw listings so failures are never silently dropped.
type EnrichedRunner struct {
	gitlab.RunnerSummary
	Managers []gitlab.ManagerRecord `json:"managers"`
	Err      error                  `json:"-"`
}

// Enriched reports whether both enrichment fetches succeeded.
func (r EnrichedRunner) Enriched() bool {
	return r.Err == nil
}

// ManagerRow is the flattened manager-centric view used by the workers
// command: one row per manager, carrying its runner's identity and tags.
type ManagerRow struct {
	RunnerID          int64                `json:"runner_id"`
	RunnerDescription string               `json:"runner_description"`
	RunnerTags        []string             `json:"runner_tags"`
	Manager           gitlab.ManagerRecord `json:"manager"`
}

// FilterSpec is the per-query filter set. Zero-valued fields are
// unconstrained. Tag matching requires every listed tag to be present;
// the version prefix is a case-sensitive string prefix.
type FilterSpec struct {
	Tags          []string
	VersionPrefix string
	Status        string
	Type          string
	Paused        *bool
}

// Empty reports whether no predicate is set.
func (f FilterSpec) Empty() bool {
	return len(f.Tags) == 0 && f.VersionPrefix == "" && f.Status == "" && f.Type == "" && f.Paused == nil
}

var validStatuses = []string{gitlab.StatusOnline, gitlab.StatusOffline, gitlab.StatusStale, gitlab.StatusNeverContacted}
var validTypes = []string{gitlab.TypeInstance, gitlab.TypeGroup, gitlab.TypeProject}

// Validate rejects malformed filter values before any network call.
func (f FilterSpec) Validate() error {
	if f.Status != "" && !contains(validStatuses, f.Status) {
		return fleeterr.Validation(
			fmt.Errorf("unknown status %q", f.Status),
			"valid values: "+strings.Join(validStatuses, ", "),
		)
	}
	if f.Type != "" && !contains(validTypes, f.Type) {
		return fleeterr.Validation(
			fmt.Errorf("unknown runner type %q", f.Type),
			"valid values: "+strings.Join(validTypes, ", "),
		)
	}
	for _, tag := range f.Tags {
		if strings.TrimSpace(tag) == "" {
			return fleeterr.Validation(fmt.Errorf("empty tag in filter"), "tags must be non-empty strings")
		}
	}
	return nil
}

// server extracts the fields the API natively filters on. Tags and the
// version prefix stay client-side.
func (f FilterSpec) server() gitlab.ServerFilters {
	return gitlab.ServerFilters{
		Status: f.Status,
		Type:   f.Type,
		Paused: f.Paused,
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Diagnostics accounts for everything that degraded instead of failing the
// query.
type Diagnostics struct {
	EnrichmentFailures  int     `json:"enrichment_failures"`
	FailedIDs           []int64 `json:"failed_ids,omitempty"`
	PaginationTruncated bool    `json:"pagination_truncated"`
}

// Result is one query's output bundle, owned by the caller until the next
// query replaces it.
type Result struct {
	Command     Command          `json:"command"`
	Records     []EnrichedRunner `json:"records"`
	ManagerRows []ManagerRow     `json:"manager_rows,omitempty"`
	Diagnostics Diagnostics      `json:"diagnostics"`
}

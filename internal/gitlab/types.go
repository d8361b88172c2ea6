package gitlab

import "time"

// RunnerSummary is one entry from the paginated runner listing. Immutable
// once decoded; enrichment builds on top of it without mutating it.
type RunnerSummary struct {
	ID          int64    `json:"id"`
	Description string   `json:"description"`
	IPAddress   string   `json:"ip_address"`
	Active      bool     `json:"active"`
	Paused      bool     `json:"paused"`
	IsShared    bool     `json:"is_shared"`
	RunnerType  string   `json:"runner_type"`
	Status      string   `json:"status"`
	Version     string   `json:"version"`
	Revision    string   `json:"revision"`
	TagList     []string `json:"tag_list"`
	CreatedAt   string   `json:"created_at"`
}

// ManagerRecord is one runner process reported under a runner. RunnerID is
// the owning runner's ID, filled in by the client after decoding; managers
// reference their runner by ID only.
type ManagerRecord struct {
	ID           int64      `json:"id"`
	RunnerID     int64      `json:"-"`
	SystemID     string     `json:"system_id"`
	CreatedAt    string     `json:"created_at"`
	ContactedAt  *time.Time `json:"contacted_at"`
	IPAddress    string     `json:"ip_address"`
	Status       string     `json:"status"`
	Version      string     `json:"version"`
	Revision     string     `json:"revision"`
	Platform     string     `json:"platform,omitempty"`
	Architecture string     `json:"architecture,omitempty"`
}

// Online reports whether the manager currently reports the online status.
func (m ManagerRecord) Online() bool {
	return m.Status == StatusOnline
}

// Runner status values the API reports.
const (
	StatusOnline         = "online"
	StatusOffline        = "offline"
	StatusStale          = "stale"
	StatusNeverContacted = "never_contacted"
)

// Runner type values the API reports.
const (
	TypeInstance = "instance_type"
	TypeGroup    = "group_type"
	TypeProject  = "project_type"
)

// ServerFilters is the subset of filter fields the API supports as query
// parameters. Tags and version prefixes are always applied client-side.
type ServerFilters struct {
	Status string
	Type   string
	Paused *bool
}

package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fleetops/igor/internal/conductor"
)

// resultMsg carries one finished query. The generation stamp lets Update
// discard results from queries that were superseded while in flight.
type resultMsg struct {
	generation int
	result     *conductor.Result
	err        error
}

type pollTickMsg struct{}

func (m *model) runQuery() tea.Cmd {
	if m.cancel != nil {
		m.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.PollTimeout)
	m.cancel = cancel
	m.generation++
	m.loading = true

	gen := m.generation
	command := m.selected
	filters := m.filters
	cond := m.cond
	return func() tea.Msg {
		result, err := cond.Run(ctx, command, filters)
		return resultMsg{generation: gen, result: result, err: err}
	}
}

func (m *model) schedulePoll() tea.Cmd {
	return tea.Tick(m.cfg.PollInterval, func(time.Time) tea.Msg {
		return pollTickMsg{}
	})
}

// parseFilterQuery turns the filter line into a FilterSpec. Accepted terms
// are key=value pairs (tags, version, status, type, paused); a bare word is
// shorthand for a tag.
func parseFilterQuery(query string) conductor.FilterSpec {
	var spec conductor.FilterSpec
	for _, term := range strings.Fields(query) {
		key, value, found := strings.Cut(term, "=")
		if !found {
			spec.Tags = append(spec.Tags, term)
			continue
		}
		switch key {
		case "tags", "tag":
			for _, tag := range strings.Split(value, ",") {
				if tag != "" {
					spec.Tags = append(spec.Tags, tag)
				}
			}
		case "version":
			spec.VersionPrefix = value
		case "status":
			spec.Status = value
		case "type":
			spec.Type = value
		case "paused":
			paused := value == "true" || value == "yes"
			spec.Paused = &paused
		}
	}
	return spec
}

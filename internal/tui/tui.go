// Package tui is the interactive fleet browser: pick a report, edit
// filters, watch results refresh. One query runs at a time; anything
// superseded mid-flight is discarded rather than rendered.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fleetops/igor/internal/conductor"
	"github.com/fleetops/igor/internal/config"
	"github.com/fleetops/igor/internal/gitlab"
	"github.com/fleetops/igor/internal/style"
)

type state int

const (
	stateCommands state = iota
	stateFilter
	stateResults
)

type model struct {
	cfg  *config.Config
	cond *conductor.Conductor

	state    state
	cursor   int
	selected conductor.Command
	filters  conductor.FilterSpec

	filterInput textinput.Model
	table       table.Model
	spin        spinner.Model
	help        help.Model
	keys        keyMap
	showHelp    bool

	generation int
	cancel     func()
	loading    bool
	err        error
	result     *conductor.Result

	polling    bool
	lastSample conductor.RotationSample
	rotated    []int64

	width, height int
}

// Run starts the interactive browser.
func Run(cfg *config.Config) error {
	m := newModel(cfg, conductor.New(gitlab.NewClient(cfg), conductor.Options{
		MaxPages:       cfg.MaxPages,
		Concurrency:    cfg.Concurrency,
		StaleThreshold: cfg.StaleThreshold,
	}))
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func newModel(cfg *config.Config, cond *conductor.Conductor) *model {
	input := textinput.New()
	input.Placeholder = "tags=prod,linux version=17. status=online"
	input.CharLimit = 120

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = style.HighlightStyle

	return &model{
		cfg:         cfg,
		cond:        cond,
		state:       stateCommands,
		filterInput: input,
		spin:        s,
		help:        help.New(),
		keys:        defaultKeyMap,
	}
}

func (m *model) Init() tea.Cmd {
	return m.spin.Tick
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case resultMsg:
		if msg.generation != m.generation {
			// A newer query superseded this one; its result is stale.
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.polling = false
			return m, nil
		}
		m.err = nil
		m.result = msg.result
		m.trackRotation(msg.result)
		m.rebuildTable()
		m.state = stateResults
		if m.polling {
			return m, m.schedulePoll()
		}
		return m, nil

	case pollTickMsg:
		if !m.polling || m.state != stateResults {
			return m, nil
		}
		return m, m.runQuery()
	}

	var cmd tea.Cmd
	m.spin, cmd = m.spin.Update(msg)
	return m, cmd
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit
	}
	if key.Matches(msg, m.keys.Help) && m.state != stateFilter {
		m.showHelp = !m.showHelp
		return m, nil
	}

	switch m.state {
	case stateCommands:
		switch {
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(conductor.Commands)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Filter):
			m.state = stateFilter
			m.filterInput.Focus()
			return m, textinput.Blink
		case key.Matches(msg, m.keys.Enter):
			m.selected = conductor.Commands[m.cursor]
			m.filters = parseFilterQuery(m.filterInput.Value())
			m.lastSample = nil
			m.rotated = nil
			return m, m.runQuery()
		}
		return m, nil

	case stateFilter:
		switch msg.String() {
		case "enter", "esc":
			m.filterInput.Blur()
			m.state = stateCommands
			return m, nil
		}
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		return m, cmd

	case stateResults:
		switch {
		case key.Matches(msg, m.keys.Back):
			m.polling = false
			if m.cancel != nil {
				m.cancel()
			}
			m.state = stateCommands
			return m, nil
		case key.Matches(msg, m.keys.Poll):
			m.polling = !m.polling
			if m.polling {
				return m, m.schedulePoll()
			}
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			return m, m.runQuery()
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

// trackRotation compares manager fingerprints across consecutive polls and
// records which runners rotated since the last sample.
func (m *model) trackRotation(result *conductor.Result) {
	sample := conductor.TakeSample(result.Records)
	if m.polling {
		if changed := sample.ChangedSince(m.lastSample); len(changed) > 0 {
			m.rotated = changed
		}
	}
	m.lastSample = sample
}

func (m *model) rebuildTable() {
	height := m.height - 10
	if height < 5 {
		height = 5
	}

	if m.selected == conductor.CommandWorkers {
		columns := []table.Column{
			{Title: "Runner", Width: 8},
			{Title: "System ID", Width: 24},
			{Title: "Status", Width: 10},
			{Title: "Version", Width: 12},
			{Title: "Last Contact", Width: 20},
		}
		rows := make([]table.Row, 0, len(m.result.ManagerRows))
		for _, r := range m.result.ManagerRows {
			contact := "never"
			if r.Manager.ContactedAt != nil {
				contact = r.Manager.ContactedAt.Format("2006-01-02 15:04")
			}
			rows = append(rows, table.Row{
				fmt.Sprintf("%d", r.RunnerID),
				r.Manager.SystemID,
				r.Manager.Status,
				r.Manager.Version,
				contact,
			})
		}
		m.table = newTable(columns, rows, height)
		return
	}

	columns := []table.Column{
		{Title: "ID", Width: 8},
		{Title: "Description", Width: 30},
		{Title: "Status", Width: 10},
		{Title: "Health", Width: 10},
		{Title: "Version", Width: 12},
		{Title: "Managers", Width: 14},
		{Title: "Tags", Width: 22},
	}
	rows := make([]table.Row, 0, len(m.result.Records))
	for _, r := range m.result.Records {
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", r.ID),
			r.Description,
			r.Status,
			healthCell(m.cond.Classifier(), r),
			r.Version,
			managerCell(r),
			strings.Join(r.TagList, ","),
		})
	}
	m.table = newTable(columns, rows, height)
}

func newTable(columns []table.Column, rows []table.Row, height int) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)
	ts := table.DefaultStyles()
	ts.Header = ts.Header.Bold(true).Foreground(lipgloss.Color("#FC6D26"))
	ts.Selected = ts.Selected.Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#FC6D26"))
	t.SetStyles(ts)
	return t
}

func healthCell(cl *conductor.Classifier, r conductor.EnrichedRunner) string {
	switch {
	case !r.Enriched():
		return "unknown"
	case cl.Unmanaged(r):
		return "unmanaged"
	case cl.Rotating(r):
		return "rotating"
	case cl.FullyHealthy(r):
		return "healthy"
	case cl.Degraded(r):
		return "degraded"
	default:
		return "partial"
	}
}

func managerCell(r conductor.EnrichedRunner) string {
	if !r.Enriched() {
		return "enrich failed"
	}
	if len(r.Managers) == 0 {
		return "none"
	}
	online := 0
	for _, mgr := range r.Managers {
		if mgr.Online() {
			online++
		}
	}
	return fmt.Sprintf("%d/%d online", online, len(r.Managers))
}

func (m *model) View() string {
	var b strings.Builder
	b.WriteString(style.TitleStyle.Render("igor"))
	b.WriteString("  ")
	b.WriteString(style.DimStyle.Render(m.cfg.Host))
	b.WriteString("\n\n")

	switch m.state {
	case stateCommands, stateFilter:
		b.WriteString(m.viewCommands())
	case stateResults:
		b.WriteString(m.viewResults())
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(style.ErrorStyle.Render("Error: " + m.err.Error()))
	}
	if m.showHelp {
		b.WriteString("\n\n")
		b.WriteString(m.help.View(m.keys))
	}
	return b.String()
}

func (m *model) viewCommands() string {
	var b strings.Builder
	b.WriteString(style.SubtitleStyle.Render("Reports"))
	b.WriteString("\n")
	for i, c := range conductor.Commands {
		line := fmt.Sprintf("%-8s %s", c, c.Description())
		if i == m.cursor {
			b.WriteString(style.HighlightStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(style.SubtitleStyle.Render("Filters"))
	b.WriteString(" ")
	if m.state == stateFilter {
		b.WriteString(m.filterInput.View())
	} else if v := m.filterInput.Value(); v != "" {
		b.WriteString(v)
	} else {
		b.WriteString(style.DimStyle.Render("(none, press / to edit)"))
	}

	if m.loading {
		b.WriteString("\n\n")
		b.WriteString(m.spin.View())
		b.WriteString(" querying fleet...")
	}
	return b.String()
}

func (m *model) viewResults() string {
	var b strings.Builder
	header := fmt.Sprintf("%s · %d record(s)", m.selected, len(m.result.Records))
	if m.polling {
		header += fmt.Sprintf(" · polling every %s", m.cfg.PollInterval)
	}
	b.WriteString(style.SubtitleStyle.Render(header))
	b.WriteString("\n")

	if len(m.rotated) > 0 {
		b.WriteString(style.WarningStyle.Render(fmt.Sprintf("rotation: runners %v changed managers", m.rotated)))
		b.WriteString("\n")
	}
	d := m.result.Diagnostics
	if d.EnrichmentFailures > 0 {
		b.WriteString(style.WarningStyle.Render(fmt.Sprintf("%d runner(s) failed enrichment: %v", d.EnrichmentFailures, d.FailedIDs)))
		b.WriteString("\n")
	}
	if d.PaginationTruncated {
		b.WriteString(style.WarningStyle.Render("page cap reached, listing may be incomplete"))
		b.WriteString("\n")
	}

	b.WriteString(m.table.View())
	if m.loading {
		b.WriteString("\n")
		b.WriteString(m.spin.View())
		b.WriteString(" refreshing...")
	}
	return b.String()
}

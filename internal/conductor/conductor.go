// Package conductor turns raw paginated fleet API data into ordered,
// classified, partially-failure-tolerant result sets. The pipeline is
// strictly page fetch → enrichment → filtering → per-command
// classification; every stage checks its context at network suspension
// points and nothing is shared between queries.
package conductor

import (
	"context"
	"time"

	"github.com/fleetops/igor/internal/fleeterr"
	"github.com/fleetops/igor/internal/gitlab"
)

// API is the collaborator surface the conductor consumes. The gitlab
// client satisfies it; tests substitute doubles.
type API interface {
	FetchPage(ctx context.Context, filters gitlab.ServerFilters, page int) (items []gitlab.RunnerSummary, nextPage int, err error)
	FetchDetail(ctx context.Context, runnerID int64) (*gitlab.RunnerSummary, error)
	FetchManagers(ctx context.Context, runnerID int64) ([]gitlab.ManagerRecord, error)
}

// Options tunes a Conductor. Zero values get sensible defaults.
type Options struct {
	// MaxPages truncates pagination when positive; 0 means fetch
	// everything.
	MaxPages int
	// Concurrency bounds the enrichment fan-out. The bound is API
	// courtesy, not a function of local cores.
	Concurrency int
	// StaleThreshold is the contact-age cutoff for the flames command.
	StaleThreshold time.Duration
}

const (
	defaultConcurrency    = 8
	defaultStaleThreshold = time.Hour
)

// Conductor is the public façade over the query pipeline. It holds no
// state between invocations; cancellation travels through the context.
type Conductor struct {
	api        API
	opts       Options
	classifier *Classifier
}

// New builds a Conductor over the given API.
func New(api API, opts Options) *Conductor {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.StaleThreshold <= 0 {
		opts.StaleThreshold = defaultStaleThreshold
	}
	return &Conductor{
		api:        api,
		opts:       opts,
		classifier: NewClassifier(opts.StaleThreshold),
	}
}

// Run executes one query: validate filters, fetch every page, enrich under
// the concurrency bound, filter, then apply the command's classifier
// predicate. Per-runner enrichment failures degrade into Diagnostics; only
// fatal errors and cancellation abort.
func (c *Conductor) Run(ctx context.Context, command Command, filters FilterSpec) (*Result, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	fetcher := &pageFetcher{api: c.api, maxPages: c.opts.MaxPages}
	summaries, truncated, err := fetcher.fetchAll(ctx, filters.server())
	if err != nil {
		return nil, err
	}

	pool := &enrichmentPool{api: c.api, limit: c.opts.Concurrency}
	enriched, err := pool.enrichAll(ctx, summaries)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, fleeterr.Canceled(err)
	}

	records := applyFilters(enriched, filters)

	// Failure accounting covers the whole enriched set, not just what
	// survives filtering: failed items must never vanish unaccounted.
	result := &Result{
		Command:     command,
		Diagnostics: diagnose(enriched, truncated),
	}

	switch {
	case command == CommandWorkers:
		result.Records = records
		result.ManagerRows = flattenManagers(records)
	case commandSpecs[command].predicate == nil:
		result.Records = records
	default:
		result.Records = selectByPredicate(c.classifier, records, commandSpecs[command].predicate)
	}

	return result, nil
}

// Classifier exposes the conductor's classifier for consumers that render
// per-runner facts (e.g. the TUI's health column).
func (c *Conductor) Classifier() *Classifier {
	return c.classifier
}

func selectByPredicate(cl *Classifier, records []EnrichedRunner, pred func(*Classifier, EnrichedRunner) bool) []EnrichedRunner {
	selected := make([]EnrichedRunner, 0, len(records))
	for _, r := range records {
		if pred(cl, r) {
			selected = append(selected, r)
		}
	}
	return selected
}

func flattenManagers(records []EnrichedRunner) []ManagerRow {
	var rows []ManagerRow
	for _, r := range records {
		for _, m := range r.Managers {
			rows = append(rows, ManagerRow{
				RunnerID:          r.ID,
				RunnerDescription: r.Description,
				RunnerTags:        r.TagList,
				Manager:           m,
			})
		}
	}
	return rows
}

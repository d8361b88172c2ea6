package conductor

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/fleetops/igor/internal/fleeterr"
	"github.com/fleetops/igor/internal/gitlab"
)

// enrichmentPool fans out the two per-runner fetches (detail, managers)
// across a bounded set of workers. Results land in a slice indexed by
// pagination position, so completion order can never leak into output
// order. A failed runner keeps its summary and gets an error marker;
// only cancellation stops the pool.
type enrichmentPool struct {
	api   API
	limit int
}

func (p *enrichmentPool) enrichAll(ctx context.Context, summaries []gitlab.RunnerSummary) ([]EnrichedRunner, error) {
	out := make([]EnrichedRunner, len(summaries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)

	for i, summary := range summaries {
		g.Go(func() error {
			out[i] = p.enrichOne(gctx, summary)
			if fleeterr.KindOf(out[i].Err) == fleeterr.KindCanceled {
				return out[i].Err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *enrichmentPool) enrichOne(ctx context.Context, summary gitlab.RunnerSummary) EnrichedRunner {
	enriched := EnrichedRunner{RunnerSummary: summary}

	detail, err := p.api.FetchDetail(ctx, summary.ID)
	if err != nil {
		enriched.Err = err
		return enriched
	}
	// The detail record supersedes the listing entry: the list endpoint
	// omits fields like version on some server releases.
	enriched.RunnerSummary = *detail
	enriched.ID = summary.ID

	managers, err := p.api.FetchManagers(ctx, summary.ID)
	if err != nil {
		enriched.RunnerSummary = summary
		enriched.Err = err
		return enriched
	}
	enriched.Managers = managers
	return enriched
}

// diagnose collects the failure accounting for a finished enrichment pass.
func diagnose(records []EnrichedRunner, truncated bool) Diagnostics {
	d := Diagnostics{PaginationTruncated: truncated}
	for _, r := range records {
		if !r.Enriched() {
			d.EnrichmentFailures++
			d.FailedIDs = append(d.FailedIDs, r.ID)
		}
	}
	return d
}

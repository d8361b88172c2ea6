package conductor

import (
	"context"
	"fmt"

	"github.com/fleetops/igor/internal/fleeterr"
	"github.com/fleetops/igor/internal/gitlab"
)

// pageFetcher drives pagination to exhaustion, preserving API order. A
// transient error on a page gets exactly one immediate retry; a second
// failure on the same page aborts the query. maxPages of 0 means unbounded;
// a positive value truncates and is reported through Diagnostics.
type pageFetcher struct {
	api      API
	maxPages int
}

func (f *pageFetcher) fetchAll(ctx context.Context, filters gitlab.ServerFilters) (summaries []gitlab.RunnerSummary, truncated bool, err error) {
	page := 1
	fetched := 0

	for page > 0 {
		if err := ctx.Err(); err != nil {
			return nil, false, fleeterr.Canceled(err)
		}

		items, next, err := f.fetchPageOnce(ctx, filters, page)
		if err != nil {
			return nil, false, err
		}

		summaries = append(summaries, items...)
		fetched++

		if f.maxPages > 0 && fetched >= f.maxPages && next > 0 {
			return summaries, true, nil
		}
		page = next
	}

	return summaries, false, nil
}

// fetchPageOnce is one page request plus the single transient retry.
func (f *pageFetcher) fetchPageOnce(ctx context.Context, filters gitlab.ServerFilters, page int) ([]gitlab.RunnerSummary, int, error) {
	items, next, err := f.api.FetchPage(ctx, filters, page)
	if err == nil {
		return items, next, nil
	}
	if !fleeterr.IsTransient(err) {
		return nil, 0, fmt.Errorf("page %d: %w", page, err)
	}

	items, next, err = f.api.FetchPage(ctx, filters, page)
	if err != nil {
		return nil, 0, fmt.Errorf("page %d failed after retry: %w", page, err)
	}
	return items, next, nil
}

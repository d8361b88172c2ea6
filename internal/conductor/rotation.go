package conductor

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/fleetops/igor/internal/fleeterr"
)

// RotationSample maps runner ID to a fingerprint of its manager identity
// set. One sample lives until the next poll tick replaces it.
type RotationSample map[int64]string

// TakeSample fingerprints every successfully enriched runner. Failed
// runners are skipped: their manager set is unknown, not empty.
func TakeSample(records []EnrichedRunner) RotationSample {
	sample := make(RotationSample, len(records))
	for _, r := range records {
		if !r.Enriched() {
			continue
		}
		sample[r.ID] = fingerprint(r)
	}
	return sample
}

// fingerprint is the sorted manager system-id set, order-insensitive so a
// re-ordered API response is not a rotation.
func fingerprint(r EnrichedRunner) string {
	ids := make([]string, 0, len(r.Managers))
	for _, m := range r.Managers {
		ids = append(ids, m.SystemID)
	}
	sort.Strings(ids)
	return strings.Join(ids, "\x00")
}

// ChangedSince returns the IDs of runners present in both samples whose
// fingerprint differs, sorted. Runners appearing or disappearing between
// samples are not rotations.
func (s RotationSample) ChangedSince(prev RotationSample) []int64 {
	if prev == nil {
		return nil
	}
	var changed []int64
	for id, fp := range s {
		if prevFP, ok := prev[id]; ok && prevFP != fp {
			changed = append(changed, id)
		}
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i] < changed[j] })
	return changed
}

// RotationEvent names the runners whose manager set changed between two
// consecutive samples.
type RotationEvent struct {
	RunnerIDs  []int64   `json:"runner_ids"`
	ObservedAt time.Time `json:"observed_at"`
}

// WatchOptions configures a rotation watch.
type WatchOptions struct {
	Interval time.Duration
	Filters  FilterSpec
	// Headless stops the watch after the first detected rotation.
	Headless bool
}

// Watch polls the fleet at the configured interval and emits a
// RotationEvent whenever a runner's manager fingerprint changes between
// consecutive samples. The events channel closes when the watch ends; errs
// carries at most one terminal error. Any query failure ends the watch
// (transient page errors already got their retry inside the query).
func (c *Conductor) Watch(ctx context.Context, opts WatchOptions) (<-chan RotationEvent, <-chan error) {
	events := make(chan RotationEvent)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)

		var prev RotationSample

		ticker := time.NewTicker(opts.Interval)
		defer ticker.Stop()

		for {
			result, err := c.Run(ctx, CommandFetch, opts.Filters)
			if err != nil {
				if fleeterr.KindOf(err) == fleeterr.KindCanceled {
					return
				}
				errs <- err
				return
			}

			sample := TakeSample(result.Records)
			if changed := sample.ChangedSince(prev); len(changed) > 0 {
				event := RotationEvent{RunnerIDs: changed, ObservedAt: time.Now()}
				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
				if opts.Headless {
					return
				}
			}
			prev = sample

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return events, errs
}

package conductor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/igor/internal/fleeterr"
	"github.com/fleetops/igor/internal/gitlab"
)

// fakeAPI is a scripted collaborator double. Pages are served in order;
// per-runner errors and completion delays are configurable so tests can
// shuffle completion order and inject partial failures.
type fakeAPI struct {
	mu           sync.Mutex
	pages        [][]gitlab.RunnerSummary
	managers     map[int64][]gitlab.ManagerRecord
	detailErrs   map[int64]error
	managerErrs  map[int64]error
	pageFailures map[int][]error
	pageCalls    int
	beforePage   func(call int)

	enrichDelay func(runnerID int64) time.Duration
	inFlight    int32
	maxInFlight int32
}

func newFakeAPI(pages ...[]gitlab.RunnerSummary) *fakeAPI {
	return &fakeAPI{
		pages:        pages,
		managers:     make(map[int64][]gitlab.ManagerRecord),
		detailErrs:   make(map[int64]error),
		managerErrs:  make(map[int64]error),
		pageFailures: make(map[int][]error),
	}
}

func (f *fakeAPI) FetchPage(ctx context.Context, filters gitlab.ServerFilters, page int) ([]gitlab.RunnerSummary, int, error) {
	f.mu.Lock()
	f.pageCalls++
	if f.beforePage != nil {
		f.beforePage(f.pageCalls)
	}
	if errs := f.pageFailures[page]; len(errs) > 0 {
		err := errs[0]
		f.pageFailures[page] = errs[1:]
		f.mu.Unlock()
		return nil, 0, err
	}
	f.mu.Unlock()

	if page < 1 || page > len(f.pages) {
		return nil, 0, nil
	}
	next := 0
	if page < len(f.pages) {
		next = page + 1
	}
	return f.pages[page-1], next, nil
}

func (f *fakeAPI) FetchDetail(ctx context.Context, runnerID int64) (*gitlab.RunnerSummary, error) {
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, cur) {
			break
		}
	}

	if f.enrichDelay != nil {
		select {
		case <-time.After(f.enrichDelay(runnerID)):
		case <-ctx.Done():
			return nil, fleeterr.Canceled(ctx.Err())
		}
	}

	f.mu.Lock()
	err := f.detailErrs[runnerID]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	for _, page := range f.pages {
		for _, s := range page {
			if s.ID == runnerID {
				detail := s
				return &detail, nil
			}
		}
	}
	return nil, fleeterr.API(fmt.Errorf("unknown runner %d", runnerID))
}

func (f *fakeAPI) FetchManagers(ctx context.Context, runnerID int64) ([]gitlab.ManagerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.managerErrs[runnerID]; err != nil {
		return nil, err
	}
	return f.managers[runnerID], nil
}

func (f *fakeAPI) setManagers(runnerID int64, statuses ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	managers := make([]gitlab.ManagerRecord, len(statuses))
	for i, status := range statuses {
		managers[i] = gitlab.ManagerRecord{
			ID:       runnerID*100 + int64(i),
			RunnerID: runnerID,
			SystemID: fmt.Sprintf("host-%d-%d", runnerID, i),
			Status:   status,
		}
	}
	f.managers[runnerID] = managers
}

func makeSummaries(startID int64, n int) []gitlab.RunnerSummary {
	out := make([]gitlab.RunnerSummary, n)
	for i := range out {
		out[i] = gitlab.RunnerSummary{
			ID:         startID + int64(i),
			RunnerType: gitlab.TypeGroup,
			Status:     gitlab.StatusOnline,
			Version:    "17.5.0",
			TagList:    []string{"alm"},
		}
	}
	return out
}

func TestRunFetchConcatenatesAllPages(t *testing.T) {
	api := newFakeAPI(makeSummaries(1, 50), makeSummaries(51, 30))
	c := New(api, Options{Concurrency: 4})

	result, err := c.Run(context.Background(), CommandFetch, FilterSpec{})
	require.NoError(t, err)

	require.Len(t, result.Records, 80)
	for i, r := range result.Records {
		assert.Equal(t, int64(i+1), r.ID, "output order must equal pagination order")
	}
	assert.Equal(t, 0, result.Diagnostics.EnrichmentFailures)
	assert.False(t, result.Diagnostics.PaginationTruncated)
}

func TestRunOutputOrderIndependentOfCompletionOrder(t *testing.T) {
	api := newFakeAPI(makeSummaries(1, 20))
	// Later runners finish first.
	api.enrichDelay = func(id int64) time.Duration {
		return time.Duration(21-id) * time.Millisecond
	}
	c := New(api, Options{Concurrency: 20})

	result, err := c.Run(context.Background(), CommandFetch, FilterSpec{})
	require.NoError(t, err)

	require.Len(t, result.Records, 20)
	for i, r := range result.Records {
		assert.Equal(t, int64(i+1), r.ID)
	}
}

func TestRunEnrichmentFailuresDegradeToDiagnostics(t *testing.T) {
	api := newFakeAPI(makeSummaries(1, 50), makeSummaries(51, 30))
	for id := int64(1); id <= 80; id++ {
		api.setManagers(id, gitlab.StatusOnline)
	}
	api.detailErrs[7] = fleeterr.Transient(errors.New("timeout"))
	api.managerErrs[23] = fleeterr.Transient(errors.New("reset"))
	api.detailErrs[60] = fleeterr.API(errors.New("bad payload"))
	c := New(api, Options{Concurrency: 8})

	fetch, err := c.Run(context.Background(), CommandFetch, FilterSpec{})
	require.NoError(t, err)

	assert.Len(t, fetch.Records, 80, "failed runners stay in the raw listing")
	assert.Equal(t, 3, fetch.Diagnostics.EnrichmentFailures)
	assert.ElementsMatch(t, []int64{7, 23, 60}, fetch.Diagnostics.FailedIDs)

	lights, err := c.Run(context.Background(), CommandLights, FilterSpec{})
	require.NoError(t, err)

	assert.Len(t, lights.Records, 77, "failed runners are excluded from health results")
	for _, r := range lights.Records {
		assert.NotContains(t, []int64{7, 23, 60}, r.ID)
	}
	assert.Equal(t, 3, lights.Diagnostics.EnrichmentFailures)
}

func TestRunHealthRequiresAllManagersOnline(t *testing.T) {
	api := newFakeAPI(makeSummaries(1, 3))
	api.setManagers(1, gitlab.StatusOnline, gitlab.StatusOffline)
	api.setManagers(2, gitlab.StatusOnline, gitlab.StatusOnline)
	api.setManagers(3, gitlab.StatusOnline)
	c := New(api, Options{})

	result, err := c.Run(context.Background(), CommandLights, FilterSpec{})
	require.NoError(t, err)

	ids := recordIDs(result.Records)
	assert.NotContains(t, ids, int64(1), "a single offline manager disqualifies the runner")
	assert.Contains(t, ids, int64(2))
	assert.Contains(t, ids, int64(3))
}

func TestRunSwitchAndEmptyAreDisjoint(t *testing.T) {
	api := newFakeAPI(makeSummaries(1, 3))
	api.setManagers(1, gitlab.StatusOffline, gitlab.StatusOffline)
	api.setManagers(2) // no managers
	api.setManagers(3, gitlab.StatusOnline, gitlab.StatusOffline)
	c := New(api, Options{})

	degraded, err := c.Run(context.Background(), CommandSwitch, FilterSpec{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, recordIDs(degraded.Records))

	unmanaged, err := c.Run(context.Background(), CommandEmpty, FilterSpec{})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, recordIDs(unmanaged.Records))
}

func TestRunWorkersFlattensManagers(t *testing.T) {
	api := newFakeAPI(makeSummaries(1, 2))
	api.setManagers(1, gitlab.StatusOnline, gitlab.StatusOffline)
	api.setManagers(2, gitlab.StatusOnline)
	c := New(api, Options{})

	result, err := c.Run(context.Background(), CommandWorkers, FilterSpec{})
	require.NoError(t, err)

	require.Len(t, result.ManagerRows, 3)
	assert.Equal(t, int64(1), result.ManagerRows[0].RunnerID)
	assert.Equal(t, int64(1), result.ManagerRows[1].RunnerID)
	assert.Equal(t, int64(2), result.ManagerRows[2].RunnerID)
}

func TestRunRotateSelectsMultiManagerRunners(t *testing.T) {
	api := newFakeAPI(makeSummaries(1, 3))
	api.setManagers(1, gitlab.StatusOffline, gitlab.StatusOnline)
	api.setManagers(2, gitlab.StatusOnline)
	api.setManagers(3)
	c := New(api, Options{})

	result, err := c.Run(context.Background(), CommandRotate, FilterSpec{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, recordIDs(result.Records))
}

func TestRunTransientPageErrorRetriedOnce(t *testing.T) {
	api := newFakeAPI(makeSummaries(1, 5))
	api.pageFailures[1] = []error{fleeterr.Transient(errors.New("timeout"))}
	c := New(api, Options{})

	result, err := c.Run(context.Background(), CommandFetch, FilterSpec{})
	require.NoError(t, err)
	assert.Len(t, result.Records, 5)
}

func TestRunTransientPageErrorTwiceIsFatal(t *testing.T) {
	api := newFakeAPI(makeSummaries(1, 5))
	api.pageFailures[1] = []error{
		fleeterr.Transient(errors.New("timeout")),
		fleeterr.Transient(errors.New("timeout")),
	}
	c := New(api, Options{})

	result, err := c.Run(context.Background(), CommandFetch, FilterSpec{})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 2, api.pageCalls, "exactly one retry")
}

func TestRunAuthErrorFailsFastWithoutRetry(t *testing.T) {
	api := newFakeAPI(makeSummaries(1, 5))
	api.pageFailures[1] = []error{fleeterr.Auth(errors.New("401"))}
	c := New(api, Options{})

	_, err := c.Run(context.Background(), CommandFetch, FilterSpec{})
	require.Error(t, err)
	assert.Equal(t, fleeterr.KindAuth, fleeterr.KindOf(err))
	assert.Equal(t, 1, api.pageCalls, "fatal errors are never retried")
}

func TestRunMaxPagesTruncates(t *testing.T) {
	api := newFakeAPI(makeSummaries(1, 10), makeSummaries(11, 10), makeSummaries(21, 10))
	c := New(api, Options{MaxPages: 2})

	result, err := c.Run(context.Background(), CommandFetch, FilterSpec{})
	require.NoError(t, err)
	assert.Len(t, result.Records, 20)
	assert.True(t, result.Diagnostics.PaginationTruncated)
}

func TestRunValidatesFiltersBeforeAnyNetworkCall(t *testing.T) {
	api := newFakeAPI(makeSummaries(1, 5))
	c := New(api, Options{})

	_, err := c.Run(context.Background(), CommandFetch, FilterSpec{Status: "bogus"})
	require.Error(t, err)
	assert.Equal(t, fleeterr.KindValidation, fleeterr.KindOf(err))
	assert.Equal(t, 0, api.pageCalls, "validation errors never reach the network")
}

func TestRunCancelledMidEnrichmentProducesNoResult(t *testing.T) {
	api := newFakeAPI(makeSummaries(1, 10))
	api.enrichDelay = func(int64) time.Duration { return 200 * time.Millisecond }
	c := New(api, Options{Concurrency: 2})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	result, err := c.Run(ctx, CommandFetch, FilterSpec{})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, fleeterr.KindCanceled, fleeterr.KindOf(err))
}

func TestRunRespectsConcurrencyBound(t *testing.T) {
	api := newFakeAPI(makeSummaries(1, 30))
	api.enrichDelay = func(int64) time.Duration { return 5 * time.Millisecond }
	c := New(api, Options{Concurrency: 3})

	_, err := c.Run(context.Background(), CommandFetch, FilterSpec{})
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&api.maxInFlight), int32(3))
}

func TestRunServerSideFiltersForwarded(t *testing.T) {
	paused := true
	var seen gitlab.ServerFilters
	api := newFakeAPI(makeSummaries(1, 1))
	capture := &captureAPI{fakeAPI: api, seen: &seen}
	c := New(capture, Options{})

	_, err := c.Run(context.Background(), CommandFetch, FilterSpec{
		Status: gitlab.StatusOnline,
		Type:   gitlab.TypeGroup,
		Paused: &paused,
		Tags:   []string{"alm"},
	})
	require.NoError(t, err)

	assert.Equal(t, gitlab.StatusOnline, seen.Status)
	assert.Equal(t, gitlab.TypeGroup, seen.Type)
	require.NotNil(t, seen.Paused)
	assert.True(t, *seen.Paused)
}

type captureAPI struct {
	*fakeAPI
	seen *gitlab.ServerFilters
}

func (c *captureAPI) FetchPage(ctx context.Context, filters gitlab.ServerFilters, page int) ([]gitlab.RunnerSummary, int, error) {
	*c.seen = filters
	return c.fakeAPI.FetchPage(ctx, filters, page)
}

func recordIDs(records []EnrichedRunner) []int64 {
	ids := make([]int64, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids
}

package gitlab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/fleetops/igor/internal/config"
	"github.com/fleetops/igor/internal/fleeterr"
)

// Client talks to a GitLab-compatible fleet API. All methods classify
// failures into fleeterr kinds so callers never inspect transport details.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	perPage int
	debug   bool
}

// NewClient builds a client from config. The rate limiter is the courtesy
// throttle toward the remote API; it caps request starts, not concurrency.
func NewClient(cfg *config.Config) *Client {
	httpc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Host, "/") + "/api/v4").
		SetTimeout(cfg.RequestTimeout).
		SetHeader("PRIVATE-TOKEN", cfg.Token)

	return &Client{
		http:    httpc,
		limiter: rate.NewLimiter(rate.Limit(20), 20),
		perPage: cfg.PerPage,
		debug:   cfg.Debug,
	}
}

// FetchPage requests one page of the runner listing. nextPage is 0 when the
// API signals there is nothing further.
func (c *Client) FetchPage(ctx context.Context, filters ServerFilters, page int) (items []RunnerSummary, nextPage int, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, fleeterr.Canceled(err)
	}

	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("page", strconv.Itoa(page)).
		SetQueryParam("per_page", strconv.Itoa(c.perPage))

	if filters.Status != "" {
		req.SetQueryParam("status", filters.Status)
	}
	if filters.Type != "" {
		req.SetQueryParam("type", filters.Type)
	}
	if filters.Paused != nil {
		req.SetQueryParam("paused", strconv.FormatBool(*filters.Paused))
	}

	resp, err := req.Get("/runners/all")
	if err != nil {
		return nil, 0, classifyTransport(err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, 0, err
	}

	if err := json.Unmarshal(resp.Body(), &items); err != nil {
		return nil, 0, fleeterr.API(fmt.Errorf("failed to decode runner page %d: %w", page, err))
	}

	if c.debug {
		fmt.Fprintf(os.Stderr, "[debug] page %d: %d runners\n", page, len(items))
	}

	nextPage = nextPageOf(resp, page, len(items), c.perPage)
	return items, nextPage, nil
}

// FetchDetail requests the full record for one runner.
func (c *Client) FetchDetail(ctx context.Context, runnerID int64) (*RunnerSummary, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fleeterr.Canceled(err)
	}

	resp, err := c.http.R().SetContext(ctx).Get(fmt.Sprintf("/runners/%d", runnerID))
	if err != nil {
		return nil, classifyTransport(err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var detail RunnerSummary
	if err := json.Unmarshal(resp.Body(), &detail); err != nil {
		return nil, fleeterr.API(fmt.Errorf("failed to decode runner %d detail: %w", runnerID, err))
	}
	return &detail, nil
}

// FetchManagers requests the manager list for one runner. A 404 means the
// runner has no managers and yields an empty list, not an error.
func (c *Client) FetchManagers(ctx context.Context, runnerID int64) ([]ManagerRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fleeterr.Canceled(err)
	}

	resp, err := c.http.R().SetContext(ctx).Get(fmt.Sprintf("/runners/%d/managers", runnerID))
	if err != nil {
		return nil, classifyTransport(err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return []ManagerRecord{}, nil
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var managers []ManagerRecord
	if err := json.Unmarshal(resp.Body(), &managers); err != nil {
		return nil, fleeterr.API(fmt.Errorf("failed to decode managers for runner %d: %w", runnerID, err))
	}
	for i := range managers {
		managers[i].RunnerID = runnerID
	}
	return managers, nil
}

// nextPageOf prefers the X-Next-Page header and falls back to the
// short-page heuristic for servers that omit pagination headers.
func nextPageOf(resp *resty.Response, page, got, perPage int) int {
	if raw := resp.Header().Get("X-Next-Page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	if got < perPage {
		return 0
	}
	return page + 1
}

func checkStatus(resp *resty.Response) error {
	code := resp.StatusCode()
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fleeterr.Auth(fmt.Errorf("API rejected the token: status %d", code))
	case code >= 500:
		return fleeterr.Transient(fmt.Errorf("server error: status %d", code))
	default:
		return fleeterr.API(fmt.Errorf("unexpected status code: %d, body: %s", code, resp.Body()))
	}
}

// classifyTransport maps transport failures onto the error taxonomy:
// cancellation and DNS failures are terminal for the query, timeouts and
// connection resets get one retry upstream.
func classifyTransport(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fleeterr.Canceled(err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fleeterr.Network(fmt.Errorf("cannot resolve host: %w", err))
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) {
		return fleeterr.Network(fmt.Errorf("host unreachable: %w", err))
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fleeterr.Transient(fmt.Errorf("request timed out: %w", err))
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return fleeterr.Transient(fmt.Errorf("connection reset: %w", err))
	}

	return fleeterr.Network(fmt.Errorf("request failed: %w", err))
}

package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/igor/internal/config"
	"github.com/fleetops/igor/internal/fleeterr"
)

func testConfig(url string) *config.Config {
	return &config.Config{
		Host:           url,
		Token:          "test-token",
		PerPage:        100,
		Concurrency:    4,
		RequestTimeout: 5 * time.Second,
		PollInterval:   time.Second,
	}
}

func setupTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(testConfig(server.URL))
}

func TestFetchPage(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/runners/all", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("PRIVATE-TOKEN"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		fmt.Fprint(w, `[{"id":12345,"runner_type":"group_type","active":true,"paused":false,"description":"Test Runner","status":"online","version":"17.5.0","tag_list":["alm","production"]}]`)
	})

	items, nextPage, err := client.FetchPage(context.Background(), ServerFilters{}, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(12345), items[0].ID)
	assert.Equal(t, "online", items[0].Status)
	assert.Equal(t, []string{"alm", "production"}, items[0].TagList)
	assert.Equal(t, 0, nextPage, "a short page ends pagination")
}

func TestFetchPageServerFilters(t *testing.T) {
	paused := false
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "online", q.Get("status"))
		assert.Equal(t, "group_type", q.Get("type"))
		assert.Equal(t, "false", q.Get("paused"))
		fmt.Fprint(w, `[]`)
	})

	_, _, err := client.FetchPage(context.Background(), ServerFilters{
		Status: "online",
		Type:   "group_type",
		Paused: &paused,
	}, 1)
	require.NoError(t, err)
}

func TestFetchPageNextPageHeader(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Next-Page", "2")
		fmt.Fprint(w, `[{"id":1,"runner_type":"group_type","status":"online","tag_list":[]}]`)
	})

	_, nextPage, err := client.FetchPage(context.Background(), ServerFilters{}, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, nextPage)
}

func TestFetchPageAuthError(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"401 Unauthorized"}`)
	})

	_, _, err := client.FetchPage(context.Background(), ServerFilters{}, 1)
	require.Error(t, err)
	assert.Equal(t, fleeterr.KindAuth, fleeterr.KindOf(err))
	assert.True(t, fleeterr.IsFatal(err))
}

func TestFetchPageServerErrorIsTransient(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, _, err := client.FetchPage(context.Background(), ServerFilters{}, 1)
	require.Error(t, err)
	assert.Equal(t, fleeterr.KindTransient, fleeterr.KindOf(err))
	assert.False(t, fleeterr.IsFatal(err))
}

func TestFetchPageMalformedBody(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"not":"a list"}`)
	})

	_, _, err := client.FetchPage(context.Background(), ServerFilters{}, 1)
	require.Error(t, err)
	assert.Equal(t, fleeterr.KindAPI, fleeterr.KindOf(err))
}

func TestFetchDetail(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/runners/12345", r.URL.Path)
		fmt.Fprint(w, `{"id":12345,"runner_type":"group_type","description":"Test Runner","status":"online","version":"17.5.0","tag_list":["alm"]}`)
	})

	detail, err := client.FetchDetail(context.Background(), 12345)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), detail.ID)
	assert.Equal(t, "17.5.0", detail.Version)
}

func TestFetchManagers(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/runners/12345/managers", r.URL.Path)
		fmt.Fprint(w, `[{"id":67890,"system_id":"runner-host-01","contacted_at":"2024-01-20T14:22:00Z","ip_address":"10.0.1.50","status":"online","version":"17.5.0"}]`)
	})

	managers, err := client.FetchManagers(context.Background(), 12345)
	require.NoError(t, err)
	require.Len(t, managers, 1)
	assert.Equal(t, "runner-host-01", managers[0].SystemID)
	assert.Equal(t, int64(12345), managers[0].RunnerID, "owning runner ID is filled in")
	assert.True(t, managers[0].Online())
	require.NotNil(t, managers[0].ContactedAt)
}

func TestFetchManagersNotFoundIsEmpty(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"404 Runner Not Found"}`)
	})

	managers, err := client.FetchManagers(context.Background(), 99999)
	require.NoError(t, err)
	assert.Empty(t, managers)
}

func TestFetchPageCanceledContext(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := client.FetchPage(ctx, ServerFilters{}, 1)
	require.Error(t, err)
	assert.Equal(t, fleeterr.KindCanceled, fleeterr.KindOf(err))
}

func TestFetchPageUnreachableHost(t *testing.T) {
	client := NewClient(testConfig("http://127.0.0.1:1"))

	_, _, err := client.FetchPage(context.Background(), ServerFilters{}, 1)
	require.Error(t, err)
	assert.Equal(t, fleeterr.KindNetwork, fleeterr.KindOf(err))
}

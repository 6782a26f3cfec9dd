package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dukex/operion-forms/pkg/cmd"
	"github.com/dukex/operion-forms/pkg/log"
	"github.com/dukex/operion-forms/pkg/models"
	"github.com/dukex/operion-forms/pkg/session"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T) *API {
	t.Helper()

	registry, err := cmd.NewRegistry(slog.Default(), "")
	require.NoError(t, err)

	catalog, err := cmd.NewCatalog("")
	require.NoError(t, err)

	client, err := cmd.NewEngine(context.Background(), "", catalog, registry, nil, slog.Default())
	require.NoError(t, err)

	return NewAPI(slog.Default(), catalog, registry, client, session.NewMemoryStore(time.Minute))
}

func send(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, string) {
	t.Helper()

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(body)
}

func TestAPI_RootEndpoint(t *testing.T) {
	t.Parallel()

	resp, body := send(t, newTestAPI(t).App(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Operion forms", body)
}

func TestAPI_HealthCheck(t *testing.T) {
	t.Parallel()

	app := newTestAPI(t).App()

	resp, body := send(t, app, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body)

	resp, body = send(t, app, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"healthy"`)
}

func TestAPI_Types(t *testing.T) {
	t.Parallel()

	resp, body := send(t, newTestAPI(t).App(), httptest.NewRequest(http.MethodGet, "/workflow/types", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "search_by_transaction")
	assert.Contains(t, body, "enrollment")
}

func TestAPI_ServeEngine(t *testing.T) {
	t.Parallel()

	request := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/engine/get_workflow_initial_info", strings.NewReader(`{"type":"enrollment"}`))
		req.Header.Set("Content-Type", "application/json")

		return req
	}

	resp, _ := send(t, newTestAPI(t).App(), request())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := send(t, newTestAPI(t).ServeEngine(true).App(), request())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"label":"Enrollment"`)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func TestAPI_AuditLog(t *testing.T) {
	t.Parallel()

	output := &syncBuffer{}
	logger := log.New(output, "info")

	eventBus, err := cmd.NewEventBus("gochannel", "", logger)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = eventBus.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, setupAuditLog(ctx, eventBus, logger))

	app := newTestAPI(t).WithEventBus(eventBus).App()

	form := url.Values{models.ParamType: {"search_by_transaction"}}
	req := httptest.NewRequest(http.MethodPost, "/workflow/action", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, body := send(t, app, req)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	assert.Eventually(t, func() bool {
		return strings.Contains(output.String(), "Workflow instance created")
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, output.String(), "workflow_type=search_by_transaction")
}

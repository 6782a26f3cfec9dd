package httprequest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/dukex/operion-forms/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func actionContext(params map[string]any) *protocol.ActionContext {
	return &protocol.ActionContext{
		WorkflowID: "7",
		Context:    map[string]any{},
		Params:     params,
		Logger:     slog.Default(),
	}
}

func TestAction_Execute(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.JSONEq(t, `{"transaction_id":"ABC123"}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"enrolled"}`))
	}))
	t.Cleanup(server.Close)

	action := actionContext(map[string]any{
		"url":          server.URL + "/enroll",
		"method":       "post",
		"content_type": "application/json",
		"body":         `{"transaction_id":"ABC123"}`,
		"result":       "enrollment",
	})

	require.NoError(t, NewAction().Execute(context.Background(), action))

	result, ok := action.Context["enrollment"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, result["status_code"])
	assert.Equal(t, map[string]any{"status": "enrolled"}, result["body"])
	assert.Equal(t, "application/json", result["headers"].(map[string]string)["Content-Type"])
}

func TestAction_PlainTextBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong"))
	}))
	t.Cleanup(server.Close)

	action := actionContext(map[string]any{"url": server.URL})

	require.NoError(t, NewAction().Execute(context.Background(), action))
	assert.Equal(t, "pong", action.Context[defaultResultKey].(map[string]any)["body"])
}

func TestAction_Retry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)

			return
		}

		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)

	action := actionContext(map[string]any{"url": server.URL, "attempts": "3"})

	require.NoError(t, NewAction().Execute(context.Background(), action))
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, http.StatusOK, action.Context[defaultResultKey].(map[string]any)["status_code"])
}

func TestAction_Errors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	err := NewAction().Execute(context.Background(), actionContext(map[string]any{"url": "ftp://example"}))
	require.ErrorIs(t, err, ErrHTTPRequestURLInvalid)

	err = NewAction().Execute(context.Background(), actionContext(map[string]any{}))
	require.ErrorIs(t, err, ErrHTTPRequestURLInvalid)

	action := actionContext(map[string]any{"url": server.URL, "fail_on_error": "true"})
	err = NewAction().Execute(context.Background(), action)
	require.ErrorIs(t, err, ErrHTTPStatus)
	assert.NotContains(t, action.Context, defaultResultKey)

	action = actionContext(map[string]any{"url": server.URL})
	require.NoError(t, NewAction().Execute(context.Background(), action))
	assert.Equal(t, http.StatusNotFound, action.Context[defaultResultKey].(map[string]any)["status_code"])
}

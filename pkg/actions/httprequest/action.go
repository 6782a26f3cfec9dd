// Package httprequest provides the HTTP request action class.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/operion-forms/pkg/protocol"
)

const (
	ClassID = "http.Request"

	defaultTimeout   = 30 * time.Second
	defaultResultKey = "http_response"
	maxBodyBytes     = 1 << 20
)

var (
	// ErrHTTPRequestURLInvalid is returned when the url parameter is missing or not absolute.
	ErrHTTPRequestURLInvalid = errors.New("invalid HTTP request url")
	// ErrHTTPServerError is returned when the server keeps answering with a 5xx status.
	ErrHTTPServerError = errors.New("server error during HTTP request")
	// ErrHTTPStatus is returned for non-2xx answers when fail_on_error is set.
	ErrHTTPStatus = errors.New("unexpected HTTP status")
)

// Action calls an HTTP endpoint and stores {status_code, body, headers} in
// the workflow context.
//
// Parameters: url (required), method (GET), body, content_type, result
// (http_response), attempts (1), delay in seconds (0) and fail_on_error.
type Action struct {
	client *http.Client
}

type Option func(*Action)

// WithHTTPClient replaces the client requests are sent with.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Action) {
		a.client = client
	}
}

func NewAction(opts ...Option) *Action {
	a := &Action{client: &http.Client{Timeout: defaultTimeout}}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

func (a *Action) ID() string {
	return ClassID
}

func (a *Action) Execute(ctx context.Context, action *protocol.ActionContext) error {
	url := action.Param("url", "")
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("%w: %q", ErrHTTPRequestURLInvalid, url)
	}

	method := strings.ToUpper(action.Param("method", http.MethodGet))
	attempts := intParam(action, "attempts", 1)
	delay := time.Duration(intParam(action, "delay", 0)) * time.Second

	logger := action.Logger
	if logger != nil {
		logger = logger.With("module", "http_request_action", "workflow_id", action.WorkflowID)
		logger.InfoContext(ctx, "Executing HTTP request action", "method", method, "url", url)
	}

	var (
		lastErr error
		resp    *http.Response
	)

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if logger != nil {
				logger.InfoContext(ctx, "HTTP request retry", "attempt", attempt, "attempts", attempts, "error", lastErr)
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, requestBody(action))
		if err != nil {
			return fmt.Errorf("failed to create http request: %w", err)
		}

		if contentType := action.Param("content_type", ""); contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err = a.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request failed: %w", err)
			resp = nil

			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError && attempt < attempts {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("%w: status %d", ErrHTTPServerError, resp.StatusCode)
			resp = nil

			continue
		}

		break
	}

	if resp == nil {
		return fmt.Errorf("all retry attempts failed, last error: %w", lastErr)
	}

	result, err := processResponse(resp)
	if err != nil {
		return err
	}

	if action.Param("fail_on_error", "") == "true" && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode)
	}

	action.Context[action.Param("result", defaultResultKey)] = result

	if logger != nil {
		logger.InfoContext(ctx, "HTTP request action completed", "status", resp.StatusCode)
	}

	return nil
}

func requestBody(action *protocol.ActionContext) io.Reader {
	body, ok := action.Params["body"]
	if !ok || body == nil {
		return nil
	}

	if s, ok := body.(string); ok {
		return strings.NewReader(s)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return strings.NewReader(fmt.Sprint(body))
	}

	return strings.NewReader(string(data))
}

func processResponse(resp *http.Response) (map[string]any, error) {
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var body any
	if err := json.Unmarshal(bodyBytes, &body); err != nil {
		body = string(bodyBytes)
	}

	headers := make(map[string]string, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"body":        body,
		"headers":     headers,
	}, nil
}

func intParam(action *protocol.ActionContext, name string, fallback int) int {
	value, err := strconv.Atoi(action.Param(name, ""))
	if err != nil || value < 0 {
		return fallback
	}

	return value
}

var _ protocol.ActionClass = (*Action)(nil)

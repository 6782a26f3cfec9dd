// Package httpclient talks to a remote workflow engine over JSON/HTTP.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/operion-forms/pkg/engine"
	"github.com/dukex/operion-forms/pkg/models"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultRetryDelay = 200 * time.Millisecond

	CommandGetWorkflowInitialInfo  = "get_workflow_initial_info"
	CommandGetWorkflowInfo         = "get_workflow_info"
	CommandCreateWorkflowInstance  = "create_workflow_instance"
	CommandExecuteWorkflowActivity = "execute_workflow_activity"

	KindNotFound     = "not_found"
	KindUnauthorized = "unauthorized"
	KindActionFailed = "action_failed"
)

// ErrInvalidResponse is returned when the engine answers with an unreadable body.
var ErrInvalidResponse = errors.New("invalid engine response")

// Request is the body posted for every command.
type Request struct {
	Type   string            `json:"type,omitempty"`
	ID     string            `json:"id,omitempty"`
	Action string            `json:"action,omitempty"`
	Params map[string]string `json:"params,omitempty"`
	Role   string            `json:"role,omitempty"`
}

// Response is the engine answer. Exactly one of Result and Error is set.
type Response struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ErrorBody      `json:"error,omitempty"`
}

// ErrorBody describes a failed command.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Client implements engine.Client against an engine base URL.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	retries int
	delay   time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.http = client
	}
}

// WithRetries sets how many times unreachable engines are retried. Read
// commands only.
func WithRetries(retries int) Option {
	return func(c *Client) {
		c.retries = retries
	}
}

// WithRetryDelay sets the wait before the first retry. Later retries wait
// proportionally longer.
func WithRetryDelay(delay time.Duration) Option {
	return func(c *Client) {
		c.delay = delay
	}
}

func New(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logger.With("module", "engine_http_client"),
		delay:   defaultRetryDelay,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) GetWorkflowInitialInfo(ctx context.Context, workflowType string) (*models.InitialInfo, error) {
	var info models.InitialInfo

	err := c.call(ctx, CommandGetWorkflowInitialInfo, Request{Type: workflowType}, c.retries, &info)
	if err != nil {
		return nil, err
	}

	return &info, nil
}

func (c *Client) GetWorkflowInfo(ctx context.Context, id string) (*models.WorkflowInstance, error) {
	var instance models.WorkflowInstance

	err := c.call(ctx, CommandGetWorkflowInfo, Request{ID: id}, c.retries, &instance)
	if err != nil {
		return nil, err
	}

	return &instance, nil
}

func (c *Client) CreateWorkflowInstance(ctx context.Context, workflowType string, params map[string]string) (*models.WorkflowInstance, error) {
	var instance models.WorkflowInstance

	err := c.call(ctx, CommandCreateWorkflowInstance, Request{Type: workflowType, Params: params}, 0, &instance)
	if err != nil {
		return nil, err
	}

	return &instance, nil
}

func (c *Client) ExecuteWorkflowActivity(ctx context.Context, workflowType, id, action string, params map[string]string) (*models.WorkflowInstance, error) {
	var instance models.WorkflowInstance

	request := Request{Type: workflowType, ID: id, Action: action, Params: params}

	err := c.call(ctx, CommandExecuteWorkflowActivity, request, 0, &instance)
	if err != nil {
		return nil, err
	}

	return &instance, nil
}

func (c *Client) call(ctx context.Context, command string, request Request, retries int, result any) error {
	request.Role = engine.RoleFrom(ctx)

	body, err := json.Marshal(request)
	if err != nil {
		return engine.NewError(command, request.ID, err)
	}

	var (
		resp    *http.Response
		lastErr error
	)

	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			c.logger.WarnContext(ctx, "Retrying engine command", "command", command, "attempt", attempt, "error", lastErr)

			select {
			case <-ctx.Done():
				return &engine.Error{Command: command, WorkflowID: request.ID, Message: ctx.Err().Error(), Err: engine.ErrUnavailable}
			case <-time.After(c.delay * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+command, bytes.NewReader(body))
		if err != nil {
			return engine.NewError(command, request.ID, err)
		}

		req.Header.Set("Content-Type", "application/json")

		resp, err = c.http.Do(req)
		if err == nil {
			break
		}

		lastErr = err
	}

	if resp == nil {
		return &engine.Error{Command: command, WorkflowID: request.ID, Message: lastErr.Error(), Err: engine.ErrUnavailable}
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.ErrorContext(ctx, "failed to close response body", "error", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &engine.Error{Command: command, WorkflowID: request.ID, Message: err.Error(), Err: engine.ErrUnavailable}
	}

	var response Response
	if err := json.Unmarshal(raw, &response); err != nil {
		return &engine.Error{
			Command:    command,
			WorkflowID: request.ID,
			Message:    fmt.Sprintf("status %d", resp.StatusCode),
			Err:        fmt.Errorf("%w: %w", ErrInvalidResponse, err),
		}
	}

	if response.Error != nil {
		return &engine.Error{
			Command:    command,
			WorkflowID: request.ID,
			Message:    response.Error.Message,
			Err:        kindError(response.Error.Kind),
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return &engine.Error{Command: command, WorkflowID: request.ID, Message: fmt.Sprintf("status %d", resp.StatusCode), Err: engine.ErrUnavailable}
	}

	if err := json.Unmarshal(response.Result, result); err != nil {
		return engine.NewError(command, request.ID, fmt.Errorf("%w: %w", ErrInvalidResponse, err))
	}

	return nil
}

func kindError(kind string) error {
	switch kind {
	case KindNotFound:
		return engine.ErrNotFound
	case KindUnauthorized:
		return engine.ErrUnauthorized
	default:
		return engine.ErrActionFailed
	}
}

// ErrorKind maps an engine error onto its wire kind.
func ErrorKind(err error) string {
	switch {
	case engine.IsNotFound(err):
		return KindNotFound
	case engine.IsUnauthorized(err):
		return KindUnauthorized
	default:
		return KindActionFailed
	}
}

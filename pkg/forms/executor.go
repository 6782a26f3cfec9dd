package forms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/dukex/operion-forms/pkg/engine"
	"github.com/dukex/operion-forms/pkg/eventbus"
	"github.com/dukex/operion-forms/pkg/events"
	"github.com/dukex/operion-forms/pkg/fields"
	"github.com/dukex/operion-forms/pkg/models"
	"github.com/dukex/operion-forms/pkg/otelhelper"
	"github.com/dukex/operion-forms/pkg/protocol"
	"github.com/dukex/operion-forms/pkg/session"
	"github.com/dukex/operion-forms/pkg/token"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const maxAutoSteps = 16

// Request is one call from the view layer.
type Request struct {
	// Session is the token store of the caller's browser session.
	Session   session.Store
	SessionID string
	// Params is the submission, in submitted order.
	Params fields.Pairs
}

// Executor runs index, load, submit and select against the engine.
type Executor struct {
	engine     engine.Client
	dispatcher *Dispatcher
	normalizer *fields.Normalizer
	publisher  eventbus.EventPublisher
	tracer     trace.Tracer
	logger     *slog.Logger
	staleCheck bool
	tokenOpts  []token.Option
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

func WithNormalizer(normalizer *fields.Normalizer) ExecutorOption {
	return func(e *Executor) {
		e.normalizer = normalizer
	}
}

// WithPublisher publishes creation and execution events.
func WithPublisher(publisher eventbus.EventPublisher) ExecutorOption {
	return func(e *Executor) {
		e.publisher = publisher
	}
}

func WithTracer(tracer trace.Tracer) ExecutorOption {
	return func(e *Executor) {
		e.tracer = tracer
	}
}

// WithStaleCheck rejects token bound submissions when the instance changed
// after the form was rendered. It costs one extra engine read per submission.
func WithStaleCheck(enabled bool) ExecutorOption {
	return func(e *Executor) {
		e.staleCheck = enabled
	}
}

func WithTokenOptions(opts ...token.Option) ExecutorOption {
	return func(e *Executor) {
		e.tokenOpts = opts
	}
}

func NewExecutor(client engine.Client, dispatcher *Dispatcher, logger *slog.Logger, opts ...ExecutorOption) *Executor {
	e := &Executor{
		engine:     client,
		dispatcher: dispatcher,
		normalizer: fields.NewNormalizer(),
		tracer:     otelhelper.NoopTracer(),
		logger:     logger.With("module", "action_executor"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Index renders the start form of workflowType without creating an instance.
func (e *Executor) Index(ctx context.Context, _ *Request, workflowType string) (*models.RenderResult, error) {
	const op = "index"

	if workflowType == "" {
		return nil, &Error{Op: op, Kind: KindRequest, Message: "missing workflow type", Err: ErrInvalidRequest}
	}

	ctx, span := e.startSpan(ctx, "engine."+op, attribute.String(otelhelper.WorkflowTypeKey, workflowType))
	defer span.End()

	info, err := e.engine.GetWorkflowInitialInfo(ctx, workflowType)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, wrap(op, err)
	}

	return e.dispatcher.Start(info), nil
}

// Load renders the current state of instance id.
func (e *Executor) Load(ctx context.Context, req *Request, id string) (*models.RenderResult, error) {
	const op = "load"

	if id == "" {
		return nil, &Error{Op: op, Kind: KindRequest, Message: "missing workflow id", Err: ErrInvalidRequest}
	}

	instance, err := e.getInfo(ctx, id)
	if err != nil {
		return nil, wrap(op, err)
	}

	return e.render(ctx, op, req, instance, "")
}

// Submit applies a token bound submission, or creates an instance when the
// submission names a workflow type and carries no token.
func (e *Executor) Submit(ctx context.Context, req *Request) (*models.RenderResult, error) {
	if req.Params.Get(models.ParamToken) != "" {
		return e.submitToken(ctx, req)
	}

	if workflowType := req.Params.Get(models.ParamType); workflowType != "" {
		return e.start(ctx, req, workflowType)
	}

	return nil, &Error{Op: "submit", Kind: KindRequest, Message: "missing workflow token or type", Err: ErrInvalidRequest}
}

// Select applies the choice of one action out of several. Actions without
// fields run at once, others render their field form.
func (e *Executor) Select(ctx context.Context, req *Request) (*models.RenderResult, error) {
	const op = "select"

	action := req.Params.Get(models.ParamAction)
	if action == "" {
		return nil, &Error{Op: op, Kind: KindRequest, Message: "missing action", Err: ErrInvalidRequest}
	}

	id := req.Params.Get(models.ParamID)

	if tokenID := req.Params.Get(models.ParamToken); id == "" && tokenID != "" {
		pending, err := e.tokens(req).Fetch(ctx, tokenID, false)
		if err != nil {
			return nil, e.tokenError(op, err)
		}

		id = pending.WorkflowID
	}

	if id == "" {
		return nil, &Error{Op: op, Kind: KindRequest, Message: "missing workflow id", Err: ErrInvalidRequest}
	}

	instance, err := e.getInfo(ctx, id)
	if err != nil {
		return nil, wrap(op, err)
	}

	return e.render(ctx, op, req, instance, action)
}

func (e *Executor) submitToken(ctx context.Context, req *Request) (*models.RenderResult, error) {
	const op = "submit"

	tokens := e.tokens(req)

	pending, err := tokens.Fetch(ctx, req.Params.Get(models.ParamToken), true)
	if err != nil {
		return nil, e.tokenError(op, err)
	}

	if e.staleCheck {
		current, err := e.getInfo(ctx, pending.WorkflowID)
		if err != nil {
			return nil, wrap(op, err)
		}

		if !current.LastUpdate.Equal(pending.LastUpdate) {
			return nil, &Error{Op: op, Kind: KindRequest, Message: ErrStaleToken.Error(), Err: ErrStaleToken}
		}
	}

	values, err := e.normalizer.Normalize(ctx, pending.Fields, req.Params)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindRequest, Message: err.Error(), Err: err}
	}

	if pending.Handler != "" {
		instance, err := e.getInfo(ctx, pending.WorkflowID)
		if err != nil {
			return nil, wrap(op, err)
		}

		rc := e.renderContext(req, instance, pending.Action)
		rc.Token = pending
		rc.Submitted = values

		return e.dispatch(ctx, op, rc, Outcome{Decision: DecisionDelegateAction, Handler: pending.Handler})
	}

	params, err := fields.Serialize(values)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindRequest, Message: "unserializable field value", Err: err}
	}

	instance, err := e.execute(ctx, req, pending.WorkflowType, pending.WorkflowID, pending.Action, params, false)
	if err != nil {
		return nil, wrap(op, err)
	}

	return e.render(ctx, op, req, instance, "")
}

func (e *Executor) start(ctx context.Context, req *Request, workflowType string) (*models.RenderResult, error) {
	const op = "submit"

	ctx, span := e.startSpan(ctx, "engine.create_workflow_instance", attribute.String(otelhelper.WorkflowTypeKey, workflowType))
	defer span.End()

	instance, err := e.engine.CreateWorkflowInstance(ctx, workflowType, nil)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, wrap(op, err)
	}

	span.SetAttributes(attribute.String(otelhelper.WorkflowIDKey, instance.ID))

	e.publish(ctx, instance.ID, events.InstanceCreated{
		BaseEvent: e.baseEvent(req, events.InstanceCreatedEvent, instance.Type, instance.ID),
		State:     instance.State,
	})

	e.logger.InfoContext(ctx, "Created workflow instance", "workflow_id", instance.ID, "type", instance.Type)

	return e.render(ctx, op, req, instance, "")
}

// render decides and dispatches, running field-less actions on the way.
func (e *Executor) render(ctx context.Context, op string, req *Request, instance *models.WorkflowInstance, chosen string) (*models.RenderResult, error) {
	for step := 0; ; step++ {
		outcome, err := Decide(instance, chosen)
		if err != nil {
			if errors.Is(err, ErrActionNotAvailable) {
				return nil, &Error{Op: op, Kind: KindRequest, Message: err.Error(), Err: err}
			}

			return nil, wrap(op, err)
		}

		if outcome.Decision != DecisionExecuteImmediately {
			return e.dispatch(ctx, op, e.renderContext(req, instance, chosen), outcome)
		}

		if step >= maxAutoSteps {
			return nil, newError(op, KindDefinition, fmt.Errorf("%w: workflow %s", ErrTooManySteps, instance.ID))
		}

		instance, err = e.execute(ctx, req, instance.Type, instance.ID, outcome.Activity.Name, nil, true)
		if err != nil {
			return nil, wrap(op, err)
		}

		chosen = ""
	}
}

func (e *Executor) dispatch(ctx context.Context, op string, rc *protocol.RenderContext, outcome Outcome) (*models.RenderResult, error) {
	ctx, span := e.startSpan(ctx, "forms.render",
		attribute.String(otelhelper.WorkflowIDKey, rc.Instance.ID),
		attribute.String(otelhelper.WorkflowStateKey, rc.Instance.State),
		attribute.String(otelhelper.RenderDecisionKey, outcome.Decision.String()),
	)
	defer span.End()

	if outcome.Handler != "" {
		span.SetAttributes(attribute.String(otelhelper.HandlerIDKey, outcome.Handler))
	}

	result, err := e.dispatcher.Render(ctx, rc, outcome)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, wrap(op, err)
	}

	return result, nil
}

func (e *Executor) execute(
	ctx context.Context,
	req *Request,
	workflowType, id, action string,
	params map[string]string,
	automatic bool,
) (*models.WorkflowInstance, error) {
	ctx, span := e.startSpan(ctx, "engine.execute_workflow_activity",
		attribute.String(otelhelper.WorkflowTypeKey, workflowType),
		attribute.String(otelhelper.WorkflowIDKey, id),
		attribute.String(otelhelper.ActionNameKey, action),
	)
	defer span.End()

	instance, err := e.engine.ExecuteWorkflowActivity(ctx, workflowType, id, action, params)
	if err != nil {
		otelhelper.SetError(span, err, attribute.String(otelhelper.ActionNameKey, action))

		e.publish(ctx, id, events.ActivityFailed{
			BaseEvent: e.baseEvent(req, events.ActivityFailedEvent, workflowType, id),
			Action:    action,
			Error:     engine.Message(err),
		})

		e.logger.WarnContext(ctx, "Engine rejected activity", "workflow_id", id, "action", action, "error", err)

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.WorkflowStateKey, instance.State))

	e.publish(ctx, id, events.ActivityExecuted{
		BaseEvent: e.baseEvent(req, events.ActivityExecutedEvent, instance.Type, id),
		Action:    action,
		State:     instance.State,
		Fields:    slices.Sorted(maps.Keys(params)),
		Automatic: automatic,
	})

	return instance, nil
}

func (e *Executor) getInfo(ctx context.Context, id string) (*models.WorkflowInstance, error) {
	ctx, span := e.startSpan(ctx, "engine.get_workflow_info", attribute.String(otelhelper.WorkflowIDKey, id))
	defer span.End()

	instance, err := e.engine.GetWorkflowInfo(ctx, id)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	return instance, nil
}

func (e *Executor) renderContext(req *Request, instance *models.WorkflowInstance, chosen string) *protocol.RenderContext {
	return &protocol.RenderContext{
		Instance: instance,
		Params:   req.Params,
		Action:   chosen,
		Tokens:   e.tokens(req),
	}
}

func (e *Executor) tokens(req *Request) *token.Registry {
	return token.NewRegistry(req.Session, e.tokenOpts...)
}

func (e *Executor) tokenError(op string, err error) error {
	if errors.Is(err, token.ErrTokenNotFound) {
		return &Error{Op: op, Kind: KindRequest, Message: "invalid or expired form token", Err: fmt.Errorf("%w: %w", ErrInvalidRequest, err)}
	}

	return &Error{Op: op, Kind: KindEngine, Message: "session store unavailable", Err: err}
}

//nolint:spancheck // spans are ended by the callers
func (e *Executor) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otelhelper.StartSpan(ctx, e.tracer, name, attrs...)
}

func (e *Executor) baseEvent(req *Request, eventType events.EventType, workflowType, id string) events.BaseEvent {
	base := events.NewBaseEvent(eventType, workflowType, id)
	base.SessionID = req.SessionID

	return base
}

func (e *Executor) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, key, event); err != nil {
		e.logger.WarnContext(ctx, "Failed to publish event", "event_type", event.GetType(), "workflow_id", key, "error", err)
	}
}

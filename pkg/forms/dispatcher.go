package forms

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/operion-forms/pkg/fields"
	"github.com/dukex/operion-forms/pkg/models"
	"github.com/dukex/operion-forms/pkg/protocol"
)

const (
	defaultBasePath = "/workflow"
	loadPrefix      = "load!"
)

// HandlerResolver resolves custom handler ids.
type HandlerResolver interface {
	Handler(id string) (protocol.RenderHandler, error)
}

// Dispatcher renders a decided outcome into a form descriptor.
type Dispatcher struct {
	handlers HandlerResolver
	basePath string
	logger   *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithBasePath sets the path prefix of form actions and load redirects.
func WithBasePath(basePath string) DispatcherOption {
	return func(d *Dispatcher) {
		d.basePath = strings.TrimSuffix(basePath, "/")
	}
}

func NewDispatcher(handlers HandlerResolver, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		handlers: handlers,
		basePath: defaultBasePath,
		logger:   logger.With("module", "render_dispatcher"),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// ActionPath is where field forms and start forms post.
func (d *Dispatcher) ActionPath() string {
	return d.basePath + "/action"
}

// SelectPath is where choice forms post.
func (d *Dispatcher) SelectPath() string {
	return d.basePath + "/select"
}

// LoadPath is the page of an instance.
func (d *Dispatcher) LoadPath(id string) string {
	return d.basePath + "/load/" + id
}

// Render builds the result for outcome. Delegations return the handler's
// result unchanged.
func (d *Dispatcher) Render(ctx context.Context, rc *protocol.RenderContext, outcome Outcome) (*models.RenderResult, error) {
	switch outcome.Decision {
	case DecisionDelegateState, DecisionDelegateAction:
		return d.delegate(ctx, rc, outcome.Handler)
	case DecisionFieldForm:
		return d.fieldForm(ctx, rc, outcome.Activity)
	case DecisionChoiceForm:
		return d.choiceForm(rc.Instance), nil
	case DecisionRedirect:
		return d.redirect(rc.Instance, outcome.Redirect)
	case DecisionOutput:
		result := d.page(rc.Instance)
		result.Output = rc.Instance.Output

		return result, nil
	default:
		return nil, fmt.Errorf("%w: cannot render %s", ErrInvalidRequest, outcome.Decision)
	}
}

// Start renders the start form of a workflow type. It carries no token; the
// instance is created on submission.
func (d *Dispatcher) Start(info *models.InitialInfo) *models.RenderResult {
	label := info.Label
	if label == "" {
		label = info.Type
	}

	return &models.RenderResult{
		PageLabel:       label,
		PageDescription: info.Description,
		Sections: []models.Section{{
			FormAction:  d.ActionPath(),
			SubmitLabel: label,
			Fields:      []models.FieldDescriptor{models.HiddenField(models.ParamType, info.Type)},
		}},
	}
}

func (d *Dispatcher) delegate(ctx context.Context, rc *protocol.RenderContext, id string) (*models.RenderResult, error) {
	handler, err := d.handlers.Handler(id)
	if err != nil {
		d.logger.ErrorContext(ctx, "Custom handler cannot be resolved", "handler", id, "error", err)

		return nil, newError("delegate", KindDelegation, fmt.Errorf("%w: %s", ErrHandlerNotFound, id))
	}

	if rc.Logger == nil {
		rc.Logger = d.logger.With("handler", id)
	}

	return handler.Render(ctx, rc)
}

func (d *Dispatcher) fieldForm(ctx context.Context, rc *protocol.RenderContext, activity models.Activity) (*models.RenderResult, error) {
	offered := make([]models.FieldDescriptor, 0, len(activity.Fields)+1)
	shown := make([]models.FieldDescriptor, 0, len(activity.Fields)+1)

	for _, field := range activity.Fields {
		if field.Type == "" {
			field.Type = models.FieldTypeText
		}

		field.Value = nil
		offered = append(offered, field)

		field.Value = contextValue(rc.Instance.Context, field.Name)
		shown = append(shown, field)
	}

	tokenField, err := rc.Tokens.Register(ctx, rc.Instance, models.PendingAction{
		Action: activity.Name,
		Fields: offered,
	})
	if err != nil {
		return nil, fmt.Errorf("register token: %w", err)
	}

	result := d.page(rc.Instance)
	result.Sections = []models.Section{{
		FormAction:  d.ActionPath(),
		SubmitLabel: activityLabel(activity),
		Fields:      append(shown, tokenField),
	}}

	return result, nil
}

func (d *Dispatcher) choiceForm(instance *models.WorkflowInstance) *models.RenderResult {
	result := d.page(instance)

	for _, activity := range instance.Activities {
		result.Sections = append(result.Sections, models.Section{
			FormAction:  d.SelectPath(),
			SubmitLabel: activityLabel(activity),
			Fields: []models.FieldDescriptor{
				models.HiddenField(models.ParamAction, activity.Name),
				models.HiddenField(models.ParamID, instance.ID),
			},
		})
	}

	return result
}

func (d *Dispatcher) redirect(instance *models.WorkflowInstance, field models.FieldDescriptor) (*models.RenderResult, error) {
	target, _ := field.Value.(string)
	if target == "" {
		return nil, newError("redirect", KindDefinition,
			fmt.Errorf("%w: redirect field %s of state %s is empty", models.ErrDefinitionMismatch, field.Name, instance.State))
	}

	result := d.page(instance)

	if id, ok := strings.CutPrefix(target, loadPrefix); ok {
		result.Redirect = &models.Redirect{Action: "load", WorkflowID: id, Target: d.LoadPath(id)}
	} else {
		result.Redirect = &models.Redirect{Target: target}
	}

	return result, nil
}

func (d *Dispatcher) page(instance *models.WorkflowInstance) *models.RenderResult {
	label := instance.Label
	if label == "" {
		label = instance.Type
	}

	return &models.RenderResult{
		PageLabel:       label,
		PageDescription: instance.PageDescription(),
	}
}

func activityLabel(activity models.Activity) string {
	if activity.Label != "" {
		return activity.Label
	}

	return activity.Name
}

// contextValue is the current value for a declared field: the whole
// collection for "name[]" and "name{}", one entry for "name{key}".
func contextValue(workflowCtx map[string]any, declared string) any {
	name := fields.ParseName(declared)

	value, ok := workflowCtx[name.Base]
	if !ok {
		return nil
	}

	if name.Kind != fields.KindMapping || name.Key == "" {
		return value
	}

	switch mapping := value.(type) {
	case map[string]any:
		return mapping[name.Key]
	case map[string]string:
		if entry, ok := mapping[name.Key]; ok {
			return entry
		}
	}

	return nil
}

package protocol

import (
	"context"
	"log/slog"

	"github.com/dukex/operion-forms/pkg/fields"
	"github.com/dukex/operion-forms/pkg/models"
)

// TokenRegistrar registers follow-up submissions for forms a handler renders.
type TokenRegistrar interface {
	Register(ctx context.Context, instance *models.WorkflowInstance, pending models.PendingAction) (models.FieldDescriptor, error)
}

// RenderContext is everything the default dispatcher knows about a request.
// Custom handlers receive it whole.
type RenderContext struct {
	Instance *models.WorkflowInstance
	// Params is the original request submission.
	Params fields.Pairs
	// Action is the chosen action, empty when none is chosen.
	Action string
	Tokens TokenRegistrar
	// Token and Submitted are set when a token bound submission is delegated.
	Token     *models.PendingActionToken
	Submitted map[string]fields.Value
	Logger    *slog.Logger
}

// RenderHandler replaces default rendering for a state or action.
type RenderHandler interface {
	ID() string
	Render(ctx context.Context, rc *RenderContext) (*models.RenderResult, error)
}

// RenderFunc adapts a function to RenderHandler.
type RenderFunc struct {
	Name string
	Fn   func(ctx context.Context, rc *RenderContext) (*models.RenderResult, error)
}

func (f RenderFunc) ID() string {
	return f.Name
}

func (f RenderFunc) Render(ctx context.Context, rc *RenderContext) (*models.RenderResult, error) {
	return f.Fn(ctx, rc)
}

// Package protocol defines the contracts pluggable handlers implement.
package protocol

import (
	"context"
	"log/slog"

	"github.com/dukex/operion-forms/pkg/models"
)

// ActionContext is the input of an action class run by the reference engine.
type ActionContext struct {
	// WorkflowID and WorkflowType identify the instance being advanced.
	WorkflowID   string
	WorkflowType string
	// Context is the instance's working context. Classes write results here.
	Context map[string]any
	// Params are the action's static parameters resolved against Context.
	Params map[string]any
	// Input holds the serialized field values submitted for the action.
	Input map[string]string
	// Finder searches other instances.
	Finder InstanceFinder
	Logger *slog.Logger
}

// InstanceFinder looks up instances whose context key equals value.
type InstanceFinder interface {
	FindInstances(ctx context.Context, workflowType, key, value string) ([]string, error)
}

// ActionClass is the executable behind an action's class reference.
type ActionClass interface {
	ID() string
	Execute(ctx context.Context, action *ActionContext) error
}

// Param returns a string parameter, or fallback when absent.
func (a *ActionContext) Param(name, fallback string) string {
	value, ok := a.Params[name]
	if !ok || value == nil {
		return fallback
	}

	if s, ok := value.(string); ok {
		return s
	}

	return fallback
}

// Instance is a read-only view for classes that need the snapshot fields.
func (a *ActionContext) Instance() *models.WorkflowInstance {
	return &models.WorkflowInstance{ID: a.WorkflowID, Type: a.WorkflowType, Context: a.Context}
}

// Package engine defines the command interface of the external workflow engine.
package engine

import (
	"context"

	"github.com/dukex/operion-forms/pkg/models"
)

// Client issues commands to the workflow engine. All calls are synchronous.
type Client interface {
	GetWorkflowInitialInfo(ctx context.Context, workflowType string) (*models.InitialInfo, error)
	GetWorkflowInfo(ctx context.Context, id string) (*models.WorkflowInstance, error)
	CreateWorkflowInstance(ctx context.Context, workflowType string, params map[string]string) (*models.WorkflowInstance, error)
	ExecuteWorkflowActivity(ctx context.Context, workflowType, id, action string, params map[string]string) (*models.WorkflowInstance, error)
}

type roleKey struct{}

// WithRole attaches the caller's role for the engine's ACL checks.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

// RoleFrom returns the role attached to ctx, if any.
func RoleFrom(ctx context.Context) string {
	role, _ := ctx.Value(roleKey{}).(string)

	return role
}

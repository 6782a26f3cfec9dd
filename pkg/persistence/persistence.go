// Package persistence provides durable storage for the reference engine's workflow instances.
package persistence

import (
	"context"

	"github.com/dukex/operion-forms/pkg/models"
)

// Persistence stores instance records: id, type, state, context and last update.
// Derived snapshot fields are not stored.
type Persistence interface {
	Instances(ctx context.Context) ([]*models.WorkflowInstance, error)
	InstanceByID(ctx context.Context, id string) (*models.WorkflowInstance, error)
	SaveInstance(ctx context.Context, instance *models.WorkflowInstance) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// Record strips a snapshot down to the stored fields.
func Record(instance *models.WorkflowInstance) *models.WorkflowInstance {
	workflowCtx := instance.Context
	if workflowCtx == nil {
		workflowCtx = map[string]any{}
	}

	return &models.WorkflowInstance{
		ID:         instance.ID,
		Type:       instance.Type,
		State:      instance.State,
		Context:    workflowCtx,
		LastUpdate: instance.LastUpdate.UTC(),
	}
}

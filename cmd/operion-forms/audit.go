package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/operion-forms/pkg/eventbus"
	"github.com/dukex/operion-forms/pkg/events"
)

// auditLog writes every workflow event it receives to the log.
type auditLog struct {
	logger *slog.Logger
}

func setupAuditLog(ctx context.Context, eventBus eventbus.EventBus, logger *slog.Logger) error {
	audit := &auditLog{logger: logger.With("module", "audit")}

	if err := eventBus.Handle(events.InstanceCreatedEvent, audit.handleInstanceCreated); err != nil {
		return fmt.Errorf("failed to subscribe to %s events: %w", events.InstanceCreatedEvent, err)
	}

	if err := eventBus.Handle(events.ActivityExecutedEvent, audit.handleActivityExecuted); err != nil {
		return fmt.Errorf("failed to subscribe to %s events: %w", events.ActivityExecutedEvent, err)
	}

	if err := eventBus.Handle(events.ActivityFailedEvent, audit.handleActivityFailed); err != nil {
		return fmt.Errorf("failed to subscribe to %s events: %w", events.ActivityFailedEvent, err)
	}

	return eventBus.Subscribe(ctx)
}

func (a *auditLog) handleInstanceCreated(ctx context.Context, eventData any) error {
	event, ok := eventData.(*events.InstanceCreated)
	if !ok {
		return fmt.Errorf("invalid event type for %s: %T", events.InstanceCreatedEvent, eventData)
	}

	a.logger.InfoContext(ctx, "Workflow instance created",
		"workflow_id", event.WorkflowID,
		"workflow_type", event.WorkflowType,
		"state", event.State)

	return nil
}

func (a *auditLog) handleActivityExecuted(ctx context.Context, eventData any) error {
	event, ok := eventData.(*events.ActivityExecuted)
	if !ok {
		return fmt.Errorf("invalid event type for %s: %T", events.ActivityExecutedEvent, eventData)
	}

	a.logger.InfoContext(ctx, "Workflow activity executed",
		"workflow_id", event.WorkflowID,
		"workflow_type", event.WorkflowType,
		"action", event.Action,
		"from_state", event.FromState,
		"state", event.State,
		"fields", event.Fields,
		"automatic", event.Automatic)

	return nil
}

func (a *auditLog) handleActivityFailed(ctx context.Context, eventData any) error {
	event, ok := eventData.(*events.ActivityFailed)
	if !ok {
		return fmt.Errorf("invalid event type for %s: %T", events.ActivityFailedEvent, eventData)
	}

	a.logger.WarnContext(ctx, "Workflow activity failed",
		"workflow_id", event.WorkflowID,
		"workflow_type", event.WorkflowType,
		"action", event.Action,
		"error", event.Error)

	return nil
}

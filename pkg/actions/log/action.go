// Package log provides the log action class.
package log

import (
	"context"
	"log/slog"

	"github.com/dukex/operion-forms/pkg/protocol"
)

const ClassID = "log"

// Action logs its message parameter together with the submitted input.
type Action struct{}

func (Action) ID() string {
	return ClassID
}

func (Action) Execute(ctx context.Context, action *protocol.ActionContext) error {
	logger := action.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.With("action_type", ClassID).InfoContext(ctx, action.Param("message", "Executing log action"),
		"workflow_id", action.WorkflowID,
		"workflow_type", action.WorkflowType,
		"input", action.Input)

	return nil
}

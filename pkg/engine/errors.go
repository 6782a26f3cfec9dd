package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the engine knows no such workflow type or instance.
	ErrNotFound = errors.New("workflow not found")

	// ErrUnauthorized indicates the caller may not perform the command.
	ErrUnauthorized = errors.New("not authorized")

	// ErrUnavailable indicates the engine could not be reached.
	ErrUnavailable = errors.New("engine unavailable")

	// ErrActionFailed indicates the engine rejected or failed an activity.
	ErrActionFailed = errors.New("workflow action failed")
)

// Error is a typed failure reported by the engine for one command.
type Error struct {
	Command    string // Engine command name
	WorkflowID string // Instance id if applicable
	Message    string // Engine supplied message
	Err        error  // Underlying error
}

func (e *Error) Error() string {
	target := e.WorkflowID
	if target == "" {
		target = "-"
	}

	if e.Message != "" {
		return fmt.Sprintf("%s failed for workflow %s: %s (%v)", e.Command, target, e.Message, e.Err)
	}

	return fmt.Sprintf("%s failed for workflow %s: %v", e.Command, target, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a command error.
func NewError(command, workflowID string, err error) *Error {
	return &Error{Command: command, WorkflowID: workflowID, Err: err}
}

// IsNotFound checks if an error indicates an unknown type or instance.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthorized checks if an error indicates a denied command.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// Message returns the engine supplied message of err, falling back to its text.
func Message(err error) string {
	var engineErr *Error
	if errors.As(err, &engineErr) && engineErr.Message != "" {
		return engineErr.Message
	}

	return err.Error()
}

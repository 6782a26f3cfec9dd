package definition

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDefinition indicates a definition failed schema, struct or reference checks.
	ErrInvalidDefinition = errors.New("invalid workflow definition")

	// ErrUnknownType indicates the catalog holds no definition for a workflow type.
	ErrUnknownType = errors.New("unknown workflow type")

	// ErrDuplicateType indicates two definitions declare the same workflow type.
	ErrDuplicateType = errors.New("duplicate workflow type")

	// ErrUnresolvedHandler indicates a handler or action class id names nothing registered.
	ErrUnresolvedHandler = errors.New("unresolved handler")
)

// LoadError wraps a definition failure with its source.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load definition %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsUnknownType checks if an error indicates a missing workflow type.
func IsUnknownType(err error) bool {
	return errors.Is(err, ErrUnknownType)
}

// IsInvalidDefinition checks if an error indicates a rejected definition.
func IsInvalidDefinition(err error) bool {
	return errors.Is(err, ErrInvalidDefinition)
}

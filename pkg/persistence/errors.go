package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrInstanceNotFound indicates no instance is stored under the given id.
	ErrInstanceNotFound = errors.New("instance not found")

	// ErrInvalidInstanceID indicates an id that cannot be used as a storage key.
	ErrInvalidInstanceID = errors.New("invalid instance id")
)

// InstanceError wraps instance storage errors with the operation and id.
type InstanceError struct {
	Op         string
	InstanceID string
	Err        error
}

func (e *InstanceError) Error() string {
	return fmt.Sprintf("%s operation failed for instance %s: %v", e.Op, e.InstanceID, e.Err)
}

func (e *InstanceError) Unwrap() error {
	return e.Err
}

func NewInstanceError(op, instanceID string, err error) *InstanceError {
	return &InstanceError{Op: op, InstanceID: instanceID, Err: err}
}

func IsInstanceNotFound(err error) bool {
	return errors.Is(err, ErrInstanceNotFound)
}

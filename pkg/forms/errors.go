package forms

import (
	"errors"
	"fmt"

	"github.com/dukex/operion-forms/pkg/engine"
	"github.com/dukex/operion-forms/pkg/fields"
	"github.com/dukex/operion-forms/pkg/models"
	"github.com/dukex/operion-forms/pkg/token"
)

// Kind classifies a failure for the caller.
type Kind string

const (
	KindDefinition Kind = "definition"
	KindRequest    Kind = "request"
	KindEngine     Kind = "engine"
	KindDelegation Kind = "delegation"
)

var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrActionNotAvailable = errors.New("requested action is not available")
	ErrStaleToken         = errors.New("workflow changed since the form was rendered")
	ErrHandlerNotFound    = errors.New("custom handler not found")
	ErrTooManySteps       = errors.New("too many automatic steps")
)

// Error is the single failure a forms operation reports.
type Error struct {
	Op      string // Operation that failed
	Kind    Kind
	Message string // User visible status
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" && e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status is the message shown to the user.
func (e *Error) Status() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Err != nil {
		return e.Err.Error()
	}

	return string(e.Kind) + " error"
}

func newError(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// wrap classifies err unless it already is an *Error.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}

	var formsErr *Error
	if errors.As(err, &formsErr) {
		return err
	}

	kind := KindEngine

	var fieldErr *fields.FieldError

	switch {
	case errors.Is(err, models.ErrDefinitionMismatch):
		kind = KindDefinition
	case errors.Is(err, ErrHandlerNotFound):
		kind = KindDelegation
	case errors.Is(err, token.ErrTokenNotFound),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrActionNotAvailable),
		errors.Is(err, ErrStaleToken),
		errors.As(err, &fieldErr):
		kind = KindRequest
	}

	formsErr = newError(op, kind, err)
	if kind == KindEngine {
		formsErr.Message = engine.Message(err)
	}

	return formsErr
}

// KindOf returns the kind of err, KindEngine for unclassified errors.
func KindOf(err error) Kind {
	var formsErr *Error
	if errors.As(err, &formsErr) {
		return formsErr.Kind
	}

	return KindEngine
}

func IsRequestError(err error) bool {
	return KindOf(err) == KindRequest
}

func IsEngineError(err error) bool {
	return KindOf(err) == KindEngine
}

func IsDefinitionError(err error) bool {
	return KindOf(err) == KindDefinition
}

func IsDelegationError(err error) bool {
	return KindOf(err) == KindDelegation
}

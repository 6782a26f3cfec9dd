// Package builtin provides the action classes every deployment registers.
package builtin

import (
	"context"

	"github.com/dukex/operion-forms/pkg/protocol"
)

const (
	NoopID       = "noop"
	SetContextID = "context.Set"
)

// Noop only moves the instance along its transition.
type Noop struct{}

func (Noop) ID() string {
	return NoopID
}

func (Noop) Execute(context.Context, *protocol.ActionContext) error {
	return nil
}

// SetContext copies every resolved parameter into the workflow context.
type SetContext struct{}

func (SetContext) ID() string {
	return SetContextID
}

func (SetContext) Execute(_ context.Context, action *protocol.ActionContext) error {
	for key, value := range action.Params {
		action.Context[key] = value
	}

	return nil
}

// Classes returns all built-in action classes.
func Classes() []protocol.ActionClass {
	return []protocol.ActionClass{Noop{}, SetContext{}}
}

// Package forms turns workflow snapshots into forms and submissions into engine commands.
package forms

import (
	"github.com/dukex/operion-forms/pkg/models"
)

// Decision is the rendering outcome chosen for a snapshot.
type Decision int

const (
	DecisionOutput Decision = iota
	DecisionDelegateState
	DecisionDelegateAction
	DecisionExecuteImmediately
	DecisionFieldForm
	DecisionChoiceForm
	DecisionRedirect
)

func (d Decision) String() string {
	switch d {
	case DecisionDelegateState:
		return "delegate_state"
	case DecisionDelegateAction:
		return "delegate_action"
	case DecisionExecuteImmediately:
		return "execute_immediately"
	case DecisionFieldForm:
		return "field_form"
	case DecisionChoiceForm:
		return "choice_form"
	case DecisionRedirect:
		return "redirect"
	default:
		return "output"
	}
}

// Outcome is a decision plus what it applies to.
type Outcome struct {
	Decision Decision
	// Activity is the effective action for action level decisions.
	Activity models.Activity
	// Handler is the custom handler for delegations.
	Handler string
	// Redirect is the redirect typed output field for DecisionRedirect.
	Redirect models.FieldDescriptor
}

// Decide picks how to render instance. Precedence: state handler, then the
// single available activity, then the chosen activity, then a choice between
// all activities. An unknown chosen action is never silently ignored.
func Decide(instance *models.WorkflowInstance, chosen string) (Outcome, error) {
	if instance.StateHandler != "" {
		return Outcome{Decision: DecisionDelegateState, Handler: instance.StateHandler}, nil
	}

	var (
		activity  models.Activity
		effective bool
	)

	if chosen != "" {
		activity, effective = instance.Activity(chosen)
		if !effective {
			return Outcome{}, ErrActionNotAvailable
		}
	} else if len(instance.Activities) == 1 {
		activity, effective = instance.Activities[0], true
	}

	if effective {
		switch {
		case activity.Handler != "":
			return Outcome{Decision: DecisionDelegateAction, Activity: activity, Handler: activity.Handler}, nil
		case len(activity.Fields) == 0:
			return Outcome{Decision: DecisionExecuteImmediately, Activity: activity}, nil
		default:
			return Outcome{Decision: DecisionFieldForm, Activity: activity}, nil
		}
	}

	if len(instance.Activities) > 1 {
		return Outcome{Decision: DecisionChoiceForm}, nil
	}

	for _, field := range instance.Output {
		if field.Type == models.FieldTypeRedirect {
			return Outcome{Decision: DecisionRedirect, Redirect: field}, nil
		}
	}

	return Outcome{Decision: DecisionOutput}, nil
}

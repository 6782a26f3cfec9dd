package definition

import (
	"fmt"

	"github.com/dukex/operion-forms/pkg/models"
	"github.com/dukex/operion-forms/pkg/template"
)

// EvaluateCondition renders the named condition over the workflow context.
// Conditions have no side effects.
func EvaluateCondition(definition *models.WorkflowDefinition, name string, workflowCtx map[string]any) (bool, error) {
	condition, err := definition.Condition(name)
	if err != nil {
		return false, err
	}

	result, err := template.RenderWithContext(condition.Expression, workflowCtx)
	if err != nil {
		return false, fmt.Errorf("condition %s: %w", name, err)
	}

	return template.Truthy(result), nil
}

// GuardHolds reports whether a transition may fire. Unguarded transitions always may.
func GuardHolds(definition *models.WorkflowDefinition, transition models.Transition, workflowCtx map[string]any) (bool, error) {
	name, negated := transition.Guard()
	if name == "" {
		return true, nil
	}

	holds, err := EvaluateCondition(definition, name, workflowCtx)
	if err != nil {
		return false, err
	}

	return holds != negated, nil
}

package definition

import (
	"fmt"
	"sort"

	"github.com/dukex/operion-forms/pkg/models"
)

// Resolver answers whether handler and action class ids are registered.
type Resolver interface {
	HasHandler(id string) bool
	HasActionClass(id string) bool
}

// Catalog holds loaded definitions by workflow type.
type Catalog struct {
	definitions map[string]*models.WorkflowDefinition
}

// NewCatalog indexes definitions, rejecting duplicate types.
func NewCatalog(definitions ...*models.WorkflowDefinition) (*Catalog, error) {
	c := &Catalog{definitions: make(map[string]*models.WorkflowDefinition, len(definitions))}

	for _, definition := range definitions {
		if _, exists := c.definitions[definition.Type]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateType, definition.Type)
		}

		c.definitions[definition.Type] = definition
	}

	return c, nil
}

// Get returns the definition of a workflow type.
func (c *Catalog) Get(workflowType string) (*models.WorkflowDefinition, error) {
	definition, ok := c.definitions[workflowType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, workflowType)
	}

	return definition, nil
}

// Types returns the known workflow types in lexical order.
func (c *Catalog) Types() []string {
	types := make([]string, 0, len(c.definitions))
	for workflowType := range c.definitions {
		types = append(types, workflowType)
	}

	sort.Strings(types)

	return types
}

// Verify fails when any state or action names a handler or action class
// the resolver does not know.
func (c *Catalog) Verify(resolver Resolver) error {
	for _, workflowType := range c.Types() {
		definition := c.definitions[workflowType]

		for _, state := range definition.States {
			if state.Handler != "" && !resolver.HasHandler(state.Handler) {
				return fmt.Errorf("%w: workflow %s state %s handler %q", ErrUnresolvedHandler, workflowType, state.Name, state.Handler)
			}
		}

		for _, action := range definition.Actions {
			if action.Handler != "" && !resolver.HasHandler(action.Handler) {
				return fmt.Errorf("%w: workflow %s action %s handler %q", ErrUnresolvedHandler, workflowType, action.Name, action.Handler)
			}

			if !resolver.HasActionClass(action.Class) {
				return fmt.Errorf("%w: workflow %s action %s class %q", ErrUnresolvedHandler, workflowType, action.Name, action.Class)
			}
		}
	}

	return nil
}

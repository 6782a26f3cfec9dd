// Package models defines the core domain models for declarative workflow rendering
package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDefinitionMismatch indicates a lookup named a state, action, field or
// condition the definition does not declare.
var ErrDefinitionMismatch = errors.New("definition mismatch")

// PersisterVolatile marks workflow types whose instances are short lived and
// never indexed by the engine.
const PersisterVolatile = "volatile"

// Operations granted through a definition ACL.
const (
	OperationCreate  = "create"
	OperationRead    = "read"
	OperationExecute = "execute"
)

// WorkflowDefinition is the parsed declaration of one workflow type.
// It is immutable once loaded.
type WorkflowDefinition struct {
	Type        string                `json:"type"                  yaml:"type"        validate:"required"`
	Label       string                `json:"label"                 yaml:"label"`
	Description string                `json:"description,omitempty" yaml:"description"`
	Prefix      string                `json:"prefix,omitempty"      yaml:"prefix"`
	Persister   string                `json:"persister,omitempty"   yaml:"persister"`
	States      []*State              `json:"states"                yaml:"states"      validate:"required,min=1,dive"`
	Actions     map[string]*Action    `json:"actions"               yaml:"actions"     validate:"dive"`
	Fields      map[string]*Field     `json:"fields"                yaml:"fields"      validate:"dive"`
	Conditions  map[string]*Condition `json:"conditions,omitempty"  yaml:"conditions"  validate:"dive"`
	ACL         map[string][]string   `json:"acl,omitempty"         yaml:"acl"`
}

// State is a node of the workflow state machine.
type State struct {
	Name        string       `json:"name"                  yaml:"name"        validate:"required"`
	Label       string       `json:"label,omitempty"       yaml:"label"`
	Description string       `json:"description,omitempty" yaml:"description"`
	Autorun     bool         `json:"autorun,omitempty"     yaml:"autorun"`
	Handler     string       `json:"handler,omitempty"     yaml:"handler"`
	Transitions []Transition `json:"transitions,omitempty" yaml:"transitions" validate:"dive"`
	Output      []string     `json:"output,omitempty"      yaml:"output"`
}

// Transition moves an instance to Target when Action runs and the optional
// guard Condition holds. A leading "!" negates the condition.
type Transition struct {
	Action    string `json:"action"              yaml:"action"    validate:"required"`
	Target    string `json:"target"              yaml:"target"    validate:"required"`
	Condition string `json:"condition,omitempty" yaml:"condition"`
}

// Guard returns the referenced condition name and whether it is negated.
func (t Transition) Guard() (string, bool) {
	if strings.HasPrefix(t.Condition, "!") {
		return strings.TrimPrefix(t.Condition, "!"), true
	}

	return t.Condition, false
}

// Action is a named transition trigger, possibly collecting input fields.
type Action struct {
	Name    string            `json:"name"              yaml:"name"`
	Label   string            `json:"label,omitempty"   yaml:"label"`
	Class   string            `json:"class"             yaml:"class"   validate:"required"`
	Handler string            `json:"handler,omitempty" yaml:"handler"`
	Params  map[string]string `json:"params,omitempty"  yaml:"params"`
	Fields  []string          `json:"fields,omitempty"  yaml:"fields"`
}

// Field declares one input or output value.
type Field struct {
	Name        string    `json:"name"                  yaml:"name"`
	Label       string    `json:"label,omitempty"       yaml:"label"`
	Description string    `json:"description,omitempty" yaml:"description"`
	Type        FieldType `json:"type,omitempty"        yaml:"type"`
	Options     []Option  `json:"options,omitempty"     yaml:"options"`
	Required    bool      `json:"required,omitempty"    yaml:"required"`
	Validate    string    `json:"validate,omitempty"    yaml:"validate"`
}

// Option is a selectable value of a select or checkbox field.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Condition is a named boolean predicate over the workflow context.
type Condition struct {
	Name       string `json:"name"       yaml:"name"`
	Expression string `json:"expression" yaml:"expression" validate:"required"`
}

// DefinitionError wraps lookup failures with the workflow type and the kind of
// element that was requested.
type DefinitionError struct {
	Type    string
	Element string
	Name    string
	Err     error
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("workflow %s: unknown %s %q: %v", e.Type, e.Element, e.Name, e.Err)
}

func (e *DefinitionError) Unwrap() error {
	return e.Err
}

// IsDefinitionMismatch checks if an error comes from an unknown definition element.
func IsDefinitionMismatch(err error) bool {
	return errors.Is(err, ErrDefinitionMismatch)
}

// InitialState returns the state new instances start in.
func (d *WorkflowDefinition) InitialState() *State {
	if len(d.States) == 0 {
		return nil
	}

	return d.States[0]
}

func (d *WorkflowDefinition) State(name string) (*State, error) {
	for _, state := range d.States {
		if state.Name == name {
			return state, nil
		}
	}

	return nil, d.mismatch("state", name)
}

func (d *WorkflowDefinition) Action(name string) (*Action, error) {
	if action, ok := d.Actions[name]; ok {
		return action, nil
	}

	return nil, d.mismatch("action", name)
}

// Field resolves a field by its declared name. Collection references such as
// "tags[]" or "info{email}" are accepted as is.
func (d *WorkflowDefinition) Field(name string) (*Field, error) {
	if field, ok := d.Fields[name]; ok {
		return field, nil
	}

	return nil, d.mismatch("field", name)
}

func (d *WorkflowDefinition) Condition(name string) (*Condition, error) {
	if condition, ok := d.Conditions[name]; ok {
		return condition, nil
	}

	return nil, d.mismatch("condition", name)
}

// Allowed reports whether role may perform operation. Definitions without an
// ACL allow everything, as does an empty role.
func (d *WorkflowDefinition) Allowed(role, operation string) bool {
	if len(d.ACL) == 0 || role == "" {
		return true
	}

	for _, op := range d.ACL[role] {
		if op == operation || op == "*" {
			return true
		}
	}

	return false
}

// Volatile reports whether instances of this type are kept out of search indexes.
func (d *WorkflowDefinition) Volatile() bool {
	return d.Persister == PersisterVolatile
}

func (d *WorkflowDefinition) mismatch(element, name string) error {
	return &DefinitionError{Type: d.Type, Element: element, Name: name, Err: ErrDefinitionMismatch}
}

package models

import "time"

// WorkflowInstance is the engine's snapshot of a running workflow.
type WorkflowInstance struct {
	ID               string            `json:"id"`
	Type             string            `json:"type"`
	Label            string            `json:"label,omitempty"`
	Description      string            `json:"description,omitempty"`
	State            string            `json:"state"`
	StateLabel       string            `json:"state_label,omitempty"`
	StateDescription string            `json:"state_description,omitempty"`
	StateHandler     string            `json:"state_handler,omitempty"`
	Context          map[string]any    `json:"context,omitempty"`
	LastUpdate       time.Time         `json:"last_update"`
	Activities       []Activity        `json:"activities,omitempty"`
	Output           []FieldDescriptor `json:"output,omitempty"`
}

// Activity is an action currently executable on an instance.
type Activity struct {
	Name    string            `json:"name"`
	Label   string            `json:"label,omitempty"`
	Fields  []FieldDescriptor `json:"fields,omitempty"`
	Handler string            `json:"handler,omitempty"`
}

// InitialInfo describes a workflow type before any instance exists.
type InitialInfo struct {
	Type        string `json:"type"`
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
}

// Activity returns the executable activity named name.
func (w *WorkflowInstance) Activity(name string) (Activity, bool) {
	for _, activity := range w.Activities {
		if activity.Name == name {
			return activity, true
		}
	}

	return Activity{}, false
}

// PageDescription prefers the state description over the type description.
func (w *WorkflowInstance) PageDescription() string {
	if w.StateDescription != "" {
		return w.StateDescription
	}

	return w.Description
}

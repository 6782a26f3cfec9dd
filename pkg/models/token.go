package models

import "time"

// PendingAction is the action and field list a rendered form offers.
type PendingAction struct {
	Action  string            `json:"action"`
	Fields  []FieldDescriptor `json:"fields"`
	Handler string            `json:"handler,omitempty"`
}

// PendingActionToken binds a rendered form to the exact action and fields the
// server offered. Submissions naming the token may only apply these.
type PendingActionToken struct {
	ID           string            `json:"id"`
	WorkflowID   string            `json:"workflow_id"`
	WorkflowType string            `json:"workflow_type"`
	LastUpdate   time.Time         `json:"last_update"`
	Action       string            `json:"action"`
	Fields       []FieldDescriptor `json:"fields"`
	Handler      string            `json:"handler,omitempty"`
}

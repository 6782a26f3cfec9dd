// Package events defines the audit events published when forms drive workflow instances.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const Topic = "operion.forms.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	InstanceCreatedEvent  EventType = "workflow.instance.created"
	ActivityExecutedEvent EventType = "workflow.activity.executed"
	ActivityFailedEvent   EventType = "workflow.activity.failed"
)

type BaseEvent struct {
	ID           string         `json:"id"`
	Type         EventType      `json:"type"`
	Timestamp    time.Time      `json:"timestamp"`
	WorkflowID   string         `json:"workflow_id"`
	WorkflowType string         `json:"workflow_type"`
	SessionID    string         `json:"session_id,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// InstanceCreated is published after a fresh-start submission created an instance.
type InstanceCreated struct {
	BaseEvent

	State string `json:"state"`
}

func (e InstanceCreated) GetType() EventType {
	return InstanceCreatedEvent
}

// ActivityExecuted is published after the engine accepted an activity.
type ActivityExecuted struct {
	BaseEvent

	Action    string   `json:"action"`
	FromState string   `json:"from_state,omitempty"`
	State     string   `json:"state"`
	Fields    []string `json:"fields,omitempty"`
	Automatic bool     `json:"automatic,omitempty"`
}

func (e ActivityExecuted) GetType() EventType {
	return ActivityExecutedEvent
}

// ActivityFailed is published when the engine rejected an activity.
type ActivityFailed struct {
	BaseEvent

	Action string `json:"action"`
	Error  string `json:"error"`
}

func (e ActivityFailed) GetType() EventType {
	return ActivityFailedEvent
}

func NewBaseEvent(eventType EventType, workflowType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:           uuid.New().String(),
		Type:         eventType,
		Timestamp:    time.Now().UTC(),
		WorkflowID:   workflowID,
		WorkflowType: workflowType,
	}
}

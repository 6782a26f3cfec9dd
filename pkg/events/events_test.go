package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, InstanceCreatedEvent, InstanceCreated{}.GetType())
	assert.Equal(t, ActivityExecutedEvent, ActivityExecuted{}.GetType())
	assert.Equal(t, ActivityFailedEvent, ActivityFailed{}.GetType())
}

func TestNewBaseEvent(t *testing.T) {
	t.Parallel()

	first := NewBaseEvent(ActivityExecutedEvent, "certificate_request", "42")
	second := NewBaseEvent(ActivityExecutedEvent, "certificate_request", "42")

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "42", first.WorkflowID)
	assert.Equal(t, "certificate_request", first.WorkflowType)
	assert.False(t, first.Timestamp.IsZero())
}

func TestActivityExecuted_Payload(t *testing.T) {
	t.Parallel()

	event := ActivityExecuted{
		BaseEvent: NewBaseEvent(ActivityExecutedEvent, "search_by_transaction", "7"),
		Action:    "search",
		FromState: "PENDING",
		State:     "NORESULT",
		Fields:    []string{"transaction_id"},
	}

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	assert.Contains(t, string(payload), `"type":"workflow.activity.executed"`)
	assert.Contains(t, string(payload), `"from_state":"PENDING"`)
	assert.NotContains(t, string(payload), `"automatic"`)
}

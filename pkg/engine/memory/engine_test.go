package memory

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/operion-forms/pkg/definition"
	"github.com/dukex/operion-forms/pkg/engine"
	"github.com/dukex/operion-forms/pkg/models"
	"github.com/dukex/operion-forms/pkg/protocol"
	"github.com/dukex/operion-forms/pkg/registry"
	"github.com/dukex/operion-forms/pkg/workflows/builtin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, extra ...*models.WorkflowDefinition) *Engine {
	t.Helper()

	certificate, err := definition.LoadFile("../../definition/testdata/certificate_request.yaml")
	require.NoError(t, err)

	catalog, err := definition.NewCatalog(append([]*models.WorkflowDefinition{certificate}, extra...)...)
	require.NoError(t, err)

	classes := registry.NewRegistry(slog.Default())
	for _, class := range builtin.Classes() {
		classes.RegisterActionClass(class)
	}

	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	return New(catalog, classes, slog.Default(), WithClock(func() time.Time {
		tick = tick.Add(time.Second)

		return tick
	}))
}

func TestEngine_Lifecycle(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := engine.WithRole(context.Background(), "ra-operator")

	info, err := e.GetWorkflowInitialInfo(ctx, "certificate_request")
	require.NoError(t, err)
	assert.Equal(t, "Certificate request", info.Label)

	created, err := e.CreateWorkflowInstance(ctx, "certificate_request", nil)
	require.NoError(t, err)
	assert.Equal(t, "1", created.ID)
	assert.Equal(t, "DATA", created.State)
	assert.Equal(t, "Enter the request data", created.StateDescription)
	require.Len(t, created.Activities, 1)
	assert.Equal(t, "enter_data", created.Activities[0].Name)
	assert.Equal(t, "Enter data", created.Activities[0].Label)
	assert.Len(t, created.Activities[0].Fields, 3)

	review, err := e.ExecuteWorkflowActivity(ctx, "certificate_request", created.ID, "enter_data", map[string]string{
		"subject": "CN=example",
		"san":     `["a.example","b.example"]`,
		"info":    `{"team":"ops"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "REVIEW", review.State)
	assert.Equal(t, []string{"a.example", "b.example"}, review.Context["san"])
	assert.Equal(t, map[string]string{"team": "ops"}, review.Context["info"])
	assert.True(t, review.LastUpdate.After(created.LastUpdate))

	names := make([]string, 0, len(review.Activities))
	for _, activity := range review.Activities {
		names = append(names, activity.Name)
	}

	assert.Equal(t, []string{"approve", "reject"}, names)

	reject, ok := review.Activity("reject")
	require.True(t, ok)
	assert.Equal(t, "ui.RejectConfirm", reject.Handler)

	done, err := e.ExecuteWorkflowActivity(ctx, "", created.ID, "approve", nil)
	require.NoError(t, err)
	assert.Equal(t, "DONE", done.State)
	assert.Empty(t, done.Activities)
	require.Len(t, done.Output, 1)
	assert.Equal(t, "subject", done.Output[0].Name)
	assert.Equal(t, "CN=example", done.Output[0].Value)

	loaded, err := e.GetWorkflowInfo(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, done.State, loaded.State)
	assert.Equal(t, done.LastUpdate, loaded.LastUpdate)
}

func TestEngine_GuardHidesActivity(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()

	created, err := e.CreateWorkflowInstance(ctx, "certificate_request", nil)
	require.NoError(t, err)

	review, err := e.ExecuteWorkflowActivity(ctx, "certificate_request", created.ID, "enter_data", map[string]string{"subject": ""})
	require.NoError(t, err)
	require.Len(t, review.Activities, 1)
	assert.Equal(t, "reject", review.Activities[0].Name)

	_, err = e.ExecuteWorkflowActivity(ctx, "certificate_request", created.ID, "approve", nil)
	require.ErrorIs(t, err, engine.ErrActionFailed)
	assert.Contains(t, engine.Message(err), "approve")
}

func TestEngine_Errors(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	operator := engine.WithRole(context.Background(), "ra-operator")
	user := engine.WithRole(context.Background(), "user")

	_, err := e.GetWorkflowInitialInfo(operator, "unknown")
	assert.True(t, engine.IsNotFound(err))

	_, err = e.GetWorkflowInfo(operator, "404")
	assert.True(t, engine.IsNotFound(err))

	_, err = e.CreateWorkflowInstance(user, "certificate_request", nil)
	assert.True(t, engine.IsUnauthorized(err))

	created, err := e.CreateWorkflowInstance(operator, "certificate_request", nil)
	require.NoError(t, err)

	_, err = e.GetWorkflowInfo(user, created.ID)
	require.NoError(t, err)

	_, err = e.ExecuteWorkflowActivity(user, "certificate_request", created.ID, "enter_data", nil)
	assert.True(t, engine.IsUnauthorized(err))

	_, err = e.ExecuteWorkflowActivity(operator, "other_type", created.ID, "enter_data", nil)
	assert.True(t, engine.IsNotFound(err))

	_, err = e.ExecuteWorkflowActivity(operator, "certificate_request", created.ID, "no_such_action", nil)
	assert.ErrorIs(t, err, engine.ErrActionFailed)

	unchanged, err := e.GetWorkflowInfo(operator, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "DATA", unchanged.State)
}

func TestEngine_FindInstances(t *testing.T) {
	t.Parallel()

	volatile := &models.WorkflowDefinition{
		Type:      "lookup",
		Persister: models.PersisterVolatile,
		States:    []*models.State{{Name: "INITIAL"}},
	}

	e := newTestEngine(t, volatile)
	ctx := context.Background()

	for _, subject := range []string{"CN=a", "CN=b", "CN=a"} {
		created, err := e.CreateWorkflowInstance(ctx, "certificate_request", nil)
		require.NoError(t, err)

		_, err = e.ExecuteWorkflowActivity(ctx, "certificate_request", created.ID, "enter_data", map[string]string{"subject": subject})
		require.NoError(t, err)
	}

	ids, err := e.FindInstances(ctx, "certificate_request", "subject", "CN=a")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, ids)

	ids, err = e.FindInstances(ctx, "certificate_request", "subject", "CN=z")
	require.NoError(t, err)
	assert.Empty(t, ids)

	e.Put(&models.WorkflowInstance{ID: "7", Type: "lookup", State: "INITIAL", Context: map[string]any{"subject": "CN=a"}})

	ids, err = e.FindInstances(ctx, "lookup", "subject", "CN=a")
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = e.FindInstances(ctx, "unknown", "subject", "CN=a")
	assert.True(t, engine.IsNotFound(err))
}

func TestEngine_Put(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()

	e.Put(&models.WorkflowInstance{
		ID:      "41",
		Type:    "certificate_request",
		State:   "REVIEW",
		Context: map[string]any{"subject": "CN=stored"},
	})

	stored, err := e.GetWorkflowInfo(ctx, "41")
	require.NoError(t, err)
	assert.Equal(t, "REVIEW", stored.State)
	assert.Len(t, stored.Activities, 2)

	stored.Context["subject"] = "mutated"

	again, err := e.GetWorkflowInfo(ctx, "41")
	require.NoError(t, err)
	assert.Equal(t, "CN=stored", again.Context["subject"])

	created, err := e.CreateWorkflowInstance(ctx, "certificate_request", nil)
	require.NoError(t, err)
	assert.Equal(t, "42", created.ID)
}

type recordingClass struct {
	seen chan string
}

func (recordingClass) ID() string {
	return "test.Record"
}

func (c recordingClass) Execute(_ context.Context, action *protocol.ActionContext) error {
	c.seen <- action.WorkflowID

	return nil
}

func TestEngine_CreateExposesIDToInitialAction(t *testing.T) {
	t.Parallel()

	def := &models.WorkflowDefinition{
		Type: "recorded",
		States: []*models.State{
			{Name: "INITIAL", Transitions: []models.Transition{{Action: "initialize", Target: "DONE"}}},
			{Name: "DONE"},
		},
		Actions: map[string]*models.Action{
			"initialize": {Name: "initialize", Class: "test.Record"},
		},
	}

	catalog, err := definition.NewCatalog(def)
	require.NoError(t, err)

	class := recordingClass{seen: make(chan string, 1)}
	classes := registry.NewRegistry(slog.Default())
	classes.RegisterActionClass(class)

	e := New(catalog, classes, slog.Default())

	created, err := e.CreateWorkflowInstance(context.Background(), "recorded", nil)
	require.NoError(t, err)
	assert.Equal(t, "DONE", created.State)
	assert.Equal(t, created.ID, <-class.seen)
	assert.NotEmpty(t, created.ID)
}

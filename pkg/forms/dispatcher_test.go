package forms

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/operion-forms/pkg/models"
	"github.com/dukex/operion-forms/pkg/protocol"
	"github.com/dukex/operion-forms/pkg/registry"
	"github.com/dukex/operion-forms/pkg/session"
	"github.com/dukex/operion-forms/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reviewInstance() *models.WorkflowInstance {
	return &models.WorkflowInstance{
		ID:               "42",
		Type:             "certificate_request",
		Label:            "Certificate request",
		Description:      "Request a new certificate",
		State:            "DATA",
		StateDescription: "Enter the request data",
		LastUpdate:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Context: map[string]any{
			"subject": "CN=example",
			"san":     []string{"a.example"},
			"info":    map[string]string{"team": "ops"},
		},
		Activities: []models.Activity{{
			Name:  "enter_data",
			Label: "Enter data",
			Fields: []models.FieldDescriptor{
				{Name: "subject", Label: "Subject", Required: true},
				{Name: "san[]", Type: models.FieldTypeTextarea},
				{Name: "info{team}"},
			},
		}},
	}
}

func newRenderContext(instance *models.WorkflowInstance, tokens *token.Registry) *protocol.RenderContext {
	return &protocol.RenderContext{Instance: instance, Tokens: tokens}
}

func TestDispatcher_FieldForm(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tokens := token.NewRegistry(session.NewMemoryStore(0))
	dispatcher := NewDispatcher(registry.NewRegistry(slog.Default()), slog.Default())
	instance := reviewInstance()

	result, err := dispatcher.Render(ctx, newRenderContext(instance, tokens),
		Outcome{Decision: DecisionFieldForm, Activity: instance.Activities[0]})
	require.NoError(t, err)

	assert.Equal(t, "Certificate request", result.PageLabel)
	assert.Equal(t, "Enter the request data", result.PageDescription)
	require.Len(t, result.Sections, 1)

	section := result.Sections[0]
	assert.Equal(t, "/workflow/action", section.FormAction)
	assert.Equal(t, "Enter data", section.SubmitLabel)
	require.Len(t, section.Fields, 4)

	assert.Equal(t, models.FieldTypeText, section.Fields[0].Type)
	assert.Equal(t, "CN=example", section.Fields[0].Value)
	assert.Equal(t, models.FieldTypeTextarea, section.Fields[1].Type)
	assert.Equal(t, []string{"a.example"}, section.Fields[1].Value)
	assert.Equal(t, "ops", section.Fields[2].Value)

	tokenField := section.Fields[3]
	assert.Equal(t, models.ParamToken, tokenField.Name)
	assert.Equal(t, models.FieldTypeHidden, tokenField.Type)

	pending, err := tokens.Fetch(ctx, tokenField.Value.(string), true)
	require.NoError(t, err)
	assert.Equal(t, "enter_data", pending.Action)
	assert.Equal(t, "42", pending.WorkflowID)
	assert.Equal(t, "certificate_request", pending.WorkflowType)
	assert.True(t, pending.LastUpdate.Equal(instance.LastUpdate))
	require.Len(t, pending.Fields, 3)
	assert.Nil(t, pending.Fields[0].Value)
	assert.Equal(t, "san[]", pending.Fields[1].Name)
}

func TestDispatcher_ChoiceForm(t *testing.T) {
	t.Parallel()

	instance := reviewInstance()
	instance.StateDescription = ""
	instance.Activities = []models.Activity{{Name: "approve", Label: "Approve"}, {Name: "reject"}}

	dispatcher := NewDispatcher(registry.NewRegistry(slog.Default()), slog.Default(), WithBasePath("/forms/"))

	result, err := dispatcher.Render(context.Background(), newRenderContext(instance, nil), Outcome{Decision: DecisionChoiceForm})
	require.NoError(t, err)

	assert.Equal(t, "Request a new certificate", result.PageDescription)
	require.Len(t, result.Sections, 2)

	for i, action := range []string{"approve", "reject"} {
		section := result.Sections[i]
		assert.Equal(t, "/forms/select", section.FormAction)
		assert.Equal(t, []models.FieldDescriptor{
			models.HiddenField(models.ParamAction, action),
			models.HiddenField(models.ParamID, "42"),
		}, section.Fields)
	}

	assert.Equal(t, "Approve", result.Sections[0].SubmitLabel)
	assert.Equal(t, "reject", result.Sections[1].SubmitLabel)
}

func TestDispatcher_Redirect(t *testing.T) {
	t.Parallel()

	dispatcher := NewDispatcher(registry.NewRegistry(slog.Default()), slog.Default())
	instance := &models.WorkflowInstance{ID: "7", Type: "search_by_transaction", State: "SUCCESS"}

	result, err := dispatcher.Render(context.Background(), newRenderContext(instance, nil), Outcome{
		Decision: DecisionRedirect,
		Redirect: models.FieldDescriptor{Name: "redirect", Type: models.FieldTypeRedirect, Value: "load!42"},
	})
	require.NoError(t, err)
	require.True(t, result.IsRedirect())
	assert.Equal(t, &models.Redirect{Action: "load", WorkflowID: "42", Target: "/workflow/load/42"}, result.Redirect)

	result, err = dispatcher.Render(context.Background(), newRenderContext(instance, nil), Outcome{
		Decision: DecisionRedirect,
		Redirect: models.FieldDescriptor{Name: "redirect", Type: models.FieldTypeRedirect, Value: "https://example.com/done"},
	})
	require.NoError(t, err)
	assert.Equal(t, &models.Redirect{Target: "https://example.com/done"}, result.Redirect)

	_, err = dispatcher.Render(context.Background(), newRenderContext(instance, nil), Outcome{
		Decision: DecisionRedirect,
		Redirect: models.FieldDescriptor{Name: "redirect", Type: models.FieldTypeRedirect},
	})
	assert.True(t, IsDefinitionError(err))
}

func TestDispatcher_Output(t *testing.T) {
	t.Parallel()

	instance := &models.WorkflowInstance{
		ID:    "7",
		Type:  "search_by_transaction",
		State: "NORESULT",
		Output: []models.FieldDescriptor{
			{Name: "transaction_id", Value: "XYZ"},
			{Name: "error_code", Value: "NO_RESULT"},
		},
	}

	dispatcher := NewDispatcher(registry.NewRegistry(slog.Default()), slog.Default())

	result, err := dispatcher.Render(context.Background(), newRenderContext(instance, nil), Outcome{Decision: DecisionOutput})
	require.NoError(t, err)
	assert.Equal(t, "search_by_transaction", result.PageLabel)
	assert.Empty(t, result.Sections)
	assert.False(t, result.IsRedirect())
	assert.Equal(t, instance.Output, result.Output)
}

func TestDispatcher_Delegate(t *testing.T) {
	t.Parallel()

	handlers := registry.NewRegistry(slog.Default())

	var received *protocol.RenderContext

	handlers.RegisterHandler(protocol.RenderFunc{
		Name: "ui.Review",
		Fn: func(_ context.Context, rc *protocol.RenderContext) (*models.RenderResult, error) {
			received = rc

			return &models.RenderResult{PageLabel: "custom"}, nil
		},
	})

	dispatcher := NewDispatcher(handlers, slog.Default())
	instance := reviewInstance()
	rc := newRenderContext(instance, nil)
	rc.Action = "enter_data"

	result, err := dispatcher.Render(context.Background(), rc, Outcome{Decision: DecisionDelegateState, Handler: "ui.Review"})
	require.NoError(t, err)
	assert.Equal(t, &models.RenderResult{PageLabel: "custom"}, result)
	assert.Same(t, rc, received)
	assert.NotNil(t, received.Logger)

	_, err = dispatcher.Render(context.Background(), rc, Outcome{Decision: DecisionDelegateAction, Handler: "ui.Missing"})
	require.ErrorIs(t, err, ErrHandlerNotFound)
	assert.True(t, IsDelegationError(err))
}

func TestDispatcher_Start(t *testing.T) {
	t.Parallel()

	dispatcher := NewDispatcher(registry.NewRegistry(slog.Default()), slog.Default())

	result := dispatcher.Start(&models.InitialInfo{Type: "search_by_transaction", Description: "Find an enrollment"})

	assert.Equal(t, "search_by_transaction", result.PageLabel)
	assert.Equal(t, "Find an enrollment", result.PageDescription)
	require.Len(t, result.Sections, 1)
	assert.Equal(t, []models.FieldDescriptor{models.HiddenField(models.ParamType, "search_by_transaction")}, result.Sections[0].Fields)
}

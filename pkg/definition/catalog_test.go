package definition

import (
	"testing"

	"github.com/dukex/operion-forms/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	handlers map[string]bool
	classes  map[string]bool
}

func (s stubResolver) HasHandler(id string) bool     { return s.handlers[id] }
func (s stubResolver) HasActionClass(id string) bool { return s.classes[id] }

func TestCatalog(t *testing.T) {
	t.Parallel()

	definition, err := LoadFile("testdata/certificate_request.yaml")
	require.NoError(t, err)

	catalog, err := NewCatalog(definition, &models.WorkflowDefinition{Type: "another"})
	require.NoError(t, err)

	assert.Equal(t, []string{"another", "certificate_request"}, catalog.Types())

	got, err := catalog.Get("certificate_request")
	require.NoError(t, err)
	assert.Same(t, definition, got)

	_, err = catalog.Get("unknown")
	assert.True(t, IsUnknownType(err))

	_, err = NewCatalog(definition, definition)
	assert.ErrorIs(t, err, ErrDuplicateType)
}

func TestCatalog_Verify(t *testing.T) {
	t.Parallel()

	definition, err := LoadFile("testdata/certificate_request.yaml")
	require.NoError(t, err)

	catalog, err := NewCatalog(definition)
	require.NoError(t, err)

	complete := stubResolver{
		handlers: map[string]bool{"ui.RejectConfirm": true},
		classes:  map[string]bool{"noop": true, "context.Set": true},
	}
	require.NoError(t, catalog.Verify(complete))

	missingHandler := stubResolver{classes: complete.classes}
	err = catalog.Verify(missingHandler)
	require.ErrorIs(t, err, ErrUnresolvedHandler)
	assert.Contains(t, err.Error(), "ui.RejectConfirm")

	missingClass := stubResolver{handlers: complete.handlers, classes: map[string]bool{"noop": true}}
	err = catalog.Verify(missingClass)
	require.ErrorIs(t, err, ErrUnresolvedHandler)
	assert.Contains(t, err.Error(), "context.Set")
}

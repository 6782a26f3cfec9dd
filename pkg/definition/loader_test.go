package definition

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/operion-forms/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	t.Parallel()

	definition, err := LoadFile("testdata/certificate_request.yaml")
	require.NoError(t, err)

	assert.Equal(t, "certificate_request", definition.Type)
	assert.Equal(t, "Certificate request", definition.Label)
	assert.Len(t, definition.States, 4)
	assert.Equal(t, "INITIAL", definition.InitialState().Name)

	action, err := definition.Action("enter_data")
	require.NoError(t, err)
	assert.Equal(t, "enter_data", action.Name)
	assert.Equal(t, []string{"subject", "san[]", "info{}"}, action.Fields)

	field, err := definition.Field("san[]")
	require.NoError(t, err)
	assert.Equal(t, "san[]", field.Name)

	condition, err := definition.Condition("is_complete")
	require.NoError(t, err)
	assert.Equal(t, "is_complete", condition.Name)

	assert.True(t, definition.Allowed("ra-operator", models.OperationCreate))
	assert.False(t, definition.Allowed("user", models.OperationCreate))
	assert.True(t, definition.Allowed("", models.OperationCreate))
}

func TestLoadDir(t *testing.T) {
	t.Parallel()

	definitions, err := LoadDir("testdata")
	require.NoError(t, err)
	require.Len(t, definitions, 1)
	assert.Equal(t, "certificate_request", definitions[0].Type)
}

func TestLoadFile_Missing(t *testing.T) {
	t.Parallel()

	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		document string
		contains string
	}{
		{
			name:     "invalid yaml",
			document: "type: [unterminated",
			contains: "invalid workflow definition",
		},
		{
			name:     "missing states",
			document: "type: empty\n",
			contains: "states",
		},
		{
			name: "unknown property",
			document: `type: x
colour: blue
states:
  - name: A
`,
			contains: "colour",
		},
		{
			name: "action without class",
			document: `type: x
states:
  - name: A
actions:
  go:
    label: Go
`,
			contains: "class",
		},
		{
			name: "unknown transition action",
			document: `type: x
states:
  - name: A
    transitions:
      - action: missing
        target: A
`,
			contains: "unknown action",
		},
		{
			name: "unknown target state",
			document: `type: x
states:
  - name: A
    transitions:
      - action: go
        target: B
actions:
  go:
    class: noop
`,
			contains: "unknown target state",
		},
		{
			name: "unknown condition",
			document: `type: x
states:
  - name: A
    transitions:
      - action: go
        target: A
        condition: "!ready"
actions:
  go:
    class: noop
`,
			contains: "unknown condition",
		},
		{
			name: "unknown action field",
			document: `type: x
states:
  - name: A
actions:
  go:
    class: noop
    fields: [ghost]
`,
			contains: "unknown field",
		},
		{
			name: "duplicate state",
			document: `type: x
states:
  - name: A
  - name: A
`,
			contains: "duplicate state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tt.document))
			require.Error(t, err)
			assert.True(t, IsInvalidDefinition(err))
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestDefinitionLookups_Mismatch(t *testing.T) {
	t.Parallel()

	definition, err := LoadFile("testdata/certificate_request.yaml")
	require.NoError(t, err)

	_, err = definition.State("NOPE")
	assert.True(t, models.IsDefinitionMismatch(err))

	_, err = definition.Action("nope")
	assert.True(t, models.IsDefinitionMismatch(err))

	_, err = definition.Field("nope")
	assert.True(t, models.IsDefinitionMismatch(err))
	assert.Contains(t, err.Error(), `unknown field "nope"`)
}

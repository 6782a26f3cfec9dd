package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandParams(t *testing.T) {
	t.Parallel()

	workflowCtx := map[string]any{
		"transaction_id": "ABC123",
		"requestor": map[string]any{
			"email": "jane@example.com",
		},
		"result": []string{"7", "9"},
	}

	expanded, err := ExpandParams(map[string]string{
		"type":    "enrollment",
		"value":   "$transaction_id",
		"email":   "$requestor.email",
		"second":  "$result.1",
		"missing": "$nope",
		"target":  "load!{{ first .context.result }}",
	}, workflowCtx)
	require.NoError(t, err)

	assert.Equal(t, "enrollment", expanded["type"])
	assert.Equal(t, "ABC123", expanded["value"])
	assert.Equal(t, "jane@example.com", expanded["email"])
	assert.Equal(t, "9", expanded["second"])
	assert.Nil(t, expanded["missing"])
	assert.Equal(t, "load!7", expanded["target"])
}

func TestExpandParams_TemplateError(t *testing.T) {
	t.Parallel()

	_, err := ExpandParams(map[string]string{"broken": "{{ .context.x "}, map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "param broken")
}

func TestLookup(t *testing.T) {
	t.Parallel()

	data := map[string]any{
		"list":  []any{"a", map[string]any{"deep": true}},
		"attrs": map[string]string{"cn": "host"},
	}

	tests := []struct {
		path  string
		want  any
		found bool
	}{
		{path: "list.0", want: "a", found: true},
		{path: "list.1.deep", want: true, found: true},
		{path: "attrs.cn", want: "host", found: true},
		{path: "list.5", found: false},
		{path: "list.x", found: false},
		{path: "unknown", found: false},
		{path: "", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := Lookup(data, tt.path)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTruthy(t *testing.T) {
	t.Parallel()

	assert.True(t, Truthy(true))
	assert.True(t, Truthy("yes-ish"))
	assert.True(t, Truthy(1.0))
	assert.True(t, Truthy([]string{"x"}))
	assert.False(t, Truthy("false"))
	assert.False(t, Truthy(""))
	assert.False(t, Truthy(0))
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy([]any{}))
	assert.False(t, Truthy(struct{}{}))
}

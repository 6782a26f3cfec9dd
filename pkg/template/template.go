// Package template renders condition expressions and action parameters
// against the workflow context.
package template

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"text/template"
	"time"
)

// Definitions evaluate the same guards over and over, so parsed templates are
// kept by source text.
var parsed sync.Map

const noValue = "<no value>"

var funcs = template.FuncMap{
	"now": func() string {
		return time.Now().UTC().Format(time.RFC3339)
	},
	"first":   first,
	"default": fallback,
	"join":    join,
	"lower":   strings.ToLower,
	"upper":   strings.ToUpper,
}

// RenderWithContext renders input with the workflow context exposed as
// .context and the process environment as .env.
func RenderWithContext(input string, workflowCtx map[string]any) (any, error) {
	return Render(input, map[string]any{
		"context": workflowCtx,
		"env":     environ(),
	})
}

// Render executes templateStr and coerces the output: JSON objects and arrays
// are decoded, numbers become float64 and booleans bool. Anything else is
// returned as the trimmed string.
func Render(templateStr string, data any) (any, error) {
	tmpl, err := lookup(templateStr)
	if err != nil {
		return nil, err
	}

	var buf strings.Builder

	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return coerce(templateStr, strings.TrimSpace(buf.String()))
}

// NeedsTemplating checks if a string contains template actions.
func NeedsTemplating(input string) bool {
	return strings.Contains(input, "{{")
}

func lookup(templateStr string) (*template.Template, error) {
	if cached, ok := parsed.Load(templateStr); ok {
		return cached.(*template.Template), nil
	}

	tmpl, err := template.New("workflow").Funcs(funcs).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	parsed.Store(templateStr, tmpl)

	return tmpl, nil
}

func coerce(templateStr, result string) (any, error) {
	// Missing map keys print as "<no value>".
	if result == noValue {
		return nil, nil
	}

	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var decoded any
		if err := json.Unmarshal([]byte(result), &decoded); err != nil {
			return nil, fmt.Errorf("failed to parse json '%s': %w", templateStr, err)
		}

		return decoded, nil
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}

func first(value any) any {
	switch v := value.(type) {
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	case []any:
		if len(v) > 0 {
			return v[0]
		}
	}

	return nil
}

func fallback(def, value any) any {
	if !Truthy(value) {
		return def
	}

	return value
}

func join(sep string, value any) string {
	switch v := value.(type) {
	case []string:
		return strings.Join(v, sep)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}

		return strings.Join(parts, sep)
	case nil:
		return ""
	}

	return fmt.Sprint(value)
}

func environ() map[string]any {
	env := make(map[string]any)

	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok {
			env[key] = value
		}
	}

	return env
}

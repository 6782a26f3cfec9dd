package template

import (
	"fmt"
	"strconv"
	"strings"
)

// ExpandParams resolves static action parameters against the workflow context.
// A value starting with "$" is a reference to a context path ("$user.email",
// "$result.0"), a value containing template actions is rendered, anything
// else is a constant.
func ExpandParams(params map[string]string, workflowCtx map[string]any) (map[string]any, error) {
	expanded := make(map[string]any, len(params))

	for key, raw := range params {
		switch {
		case strings.HasPrefix(raw, "$"):
			value, _ := Lookup(workflowCtx, strings.TrimPrefix(raw, "$"))
			expanded[key] = value
		case NeedsTemplating(raw):
			value, err := RenderWithContext(raw, workflowCtx)
			if err != nil {
				return nil, fmt.Errorf("param %s: %w", key, err)
			}

			expanded[key] = value
		default:
			expanded[key] = raw
		}
	}

	return expanded, nil
}

// Lookup walks a dotted path through nested maps and slices.
func Lookup(data map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	var current any = data

	for _, part := range strings.Split(path, ".") {
		switch v := current.(type) {
		case map[string]any:
			next, ok := v[part]
			if !ok {
				return nil, false
			}

			current = next
		case map[string]string:
			next, ok := v[part]
			if !ok {
				return nil, false
			}

			current = next
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}

			current = v[idx]
		case []string:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}

			current = v[idx]
		default:
			return nil, false
		}
	}

	return current, true
}

// Package search composes the search-by-transaction workflow: a volatile
// workflow that finds an enrollment and redirects to it.
package search

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/dukex/operion-forms/pkg/definition"
	"github.com/dukex/operion-forms/pkg/models"
	"github.com/dukex/operion-forms/pkg/protocol"
)

const (
	ClassID   = "search.Search"
	ResultKey = "search_result"
)

var (
	ErrMissingParam = errors.New("missing search parameter")
	ErrNoFinder     = errors.New("engine does not support instance search")
)

//go:embed definitions/*.yaml
var definitionFiles embed.FS

// Definitions parses the embedded search and enrollment definitions.
func Definitions() ([]*models.WorkflowDefinition, error) {
	paths, err := fs.Glob(definitionFiles, "definitions/*.yaml")
	if err != nil {
		return nil, err
	}

	definitions := make([]*models.WorkflowDefinition, 0, len(paths))

	for _, path := range paths {
		data, err := definitionFiles.ReadFile(path)
		if err != nil {
			return nil, err
		}

		parsed, err := definition.Parse(data)
		if err != nil {
			return nil, &definition.LoadError{Source: path, Err: err}
		}

		definitions = append(definitions, parsed)
	}

	return definitions, nil
}

// Search stores the ids of instances of params "type" whose context "key"
// equals "value" under params "result" (default search_result).
type Search struct{}

func (Search) ID() string {
	return ClassID
}

func (Search) Execute(ctx context.Context, action *protocol.ActionContext) error {
	workflowType := action.Param("type", "")
	key := action.Param("key", "")
	value := action.Param("value", "")

	switch {
	case workflowType == "":
		return fmt.Errorf("%w: type", ErrMissingParam)
	case key == "":
		return fmt.Errorf("%w: key", ErrMissingParam)
	case action.Finder == nil:
		return ErrNoFinder
	}

	ids, err := action.Finder.FindInstances(ctx, workflowType, key, value)
	if err != nil {
		return fmt.Errorf("search %s by %s: %w", workflowType, key, err)
	}

	if action.Logger != nil {
		action.Logger.DebugContext(ctx, "Search finished", "type", workflowType, "key", key, "matches", len(ids))
	}

	action.Context[action.Param("result", ResultKey)] = ids

	return nil
}

// Classes returns the action classes the search workflow needs besides the built-in ones.
func Classes() []protocol.ActionClass {
	return []protocol.ActionClass{Search{}}
}

// Package definition loads declarative workflow definitions and evaluates their conditions.
package definition

import (
	_ "embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/operion-forms/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaDocument string

var (
	schemaLoader = gojsonschema.NewStringLoader(schemaDocument)
	validate     = validator.New(validator.WithRequiredStructEnabled())
)

// LoadDir parses every .yaml/.yml file below root.
func LoadDir(root string) ([]*models.WorkflowDefinition, error) {
	var definitions []*models.WorkflowDefinition

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || !isYAML(path) {
			return nil
		}

		definition, err := LoadFile(path)
		if err != nil {
			return err
		}

		definitions = append(definitions, definition)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return definitions, nil
}

// LoadFile parses one definition file.
func LoadFile(path string) (*models.WorkflowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}

	definition, err := Parse(data)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}

	return definition, nil
}

// Parse decodes, validates and cross-checks a YAML definition.
func Parse(data []byte) (*models.WorkflowDefinition, error) {
	var document map[string]any
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	if err := validateSchema(document); err != nil {
		return nil, err
	}

	var definition models.WorkflowDefinition
	if err := yaml.Unmarshal(data, &definition); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	normalize(&definition)

	if err := validate.Struct(definition); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	if err := checkReferences(&definition); err != nil {
		return nil, err
	}

	return &definition, nil
}

func validateSchema(document map[string]any) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(document))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidDefinition, strings.Join(errs, "; "))
	}

	return nil
}

// normalize copies map keys into the element names.
func normalize(definition *models.WorkflowDefinition) {
	for name, action := range definition.Actions {
		action.Name = name
	}

	for name, field := range definition.Fields {
		if field == nil {
			field = &models.Field{}
			definition.Fields[name] = field
		}

		field.Name = name
	}

	for name, condition := range definition.Conditions {
		condition.Name = name
	}

	if definition.Label == "" {
		definition.Label = definition.Type
	}
}

func checkReferences(definition *models.WorkflowDefinition) error {
	seen := make(map[string]bool, len(definition.States))

	for _, state := range definition.States {
		if seen[state.Name] {
			return fmt.Errorf("%w: duplicate state %q", ErrInvalidDefinition, state.Name)
		}

		seen[state.Name] = true
	}

	for _, state := range definition.States {
		for _, transition := range state.Transitions {
			if _, err := definition.Action(transition.Action); err != nil {
				return fmt.Errorf("%w: state %s: %w", ErrInvalidDefinition, state.Name, err)
			}

			if !seen[transition.Target] {
				return fmt.Errorf("%w: state %s: unknown target state %q", ErrInvalidDefinition, state.Name, transition.Target)
			}

			if name, _ := transition.Guard(); name != "" {
				if _, err := definition.Condition(name); err != nil {
					return fmt.Errorf("%w: state %s: %w", ErrInvalidDefinition, state.Name, err)
				}
			}
		}

		for _, name := range state.Output {
			if _, err := definition.Field(name); err != nil {
				return fmt.Errorf("%w: state %s: %w", ErrInvalidDefinition, state.Name, err)
			}
		}
	}

	for _, action := range definition.Actions {
		for _, name := range action.Fields {
			if _, err := definition.Field(name); err != nil {
				return fmt.Errorf("%w: action %s: %w", ErrInvalidDefinition, action.Name, err)
			}
		}
	}

	return nil
}

func isYAML(path string) bool {
	ext := filepath.Ext(path)

	return ext == ".yaml" || ext == ".yml"
}

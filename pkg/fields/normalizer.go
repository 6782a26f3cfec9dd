package fields

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/operion-forms/pkg/models"
)

// ErrInvalidField wraps validation failures of submitted values.
var ErrInvalidField = errors.New("invalid field value")

// Validator checks one offered field's normalized value. A missing value is
// passed as the zero Value of the field's kind.
type Validator interface {
	ValidateField(ctx context.Context, field models.FieldDescriptor, value Value) error
}

// FieldError names the field a validator rejected.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Normalizer turns submitted pairs into values for the fields a token offered.
type Normalizer struct {
	validator Validator
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithValidator installs a per-field validation hook.
func WithValidator(validator Validator) NormalizerOption {
	return func(n *Normalizer) {
		n.validator = validator
	}
}

func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{}
	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Normalize collects the submitted values of offered fields. Reserved names
// and names that were not offered are dropped. An offered "name{}" accepts
// any "name{key}" entry.
func (n *Normalizer) Normalize(ctx context.Context, offered []models.FieldDescriptor, submitted Pairs) (map[string]Value, error) {
	accepted := acceptedNames(offered)
	values := make(map[string]Value)

	for _, pair := range submitted {
		if models.IsReservedParam(pair.Name) {
			continue
		}

		name := ParseName(pair.Name)
		if !accepted.allows(pair.Name, name) {
			continue
		}

		switch name.Kind {
		case KindSequence:
			current := values[name.Base]
			current.Kind = KindSequence
			current.Sequence = append(current.Sequence, pair.Value)
			values[name.Base] = current
		case KindMapping:
			current := values[name.Base]
			if current.Mapping == nil {
				current = Mapping(map[string]string{})
			}

			current.Mapping[name.Key] = pair.Value
			values[name.Base] = current
		default:
			values[name.Base] = Scalar(pair.Value)
		}
	}

	if n.validator != nil {
		for _, field := range offered {
			if models.IsReservedParam(field.Name) {
				continue
			}

			name := ParseName(field.Name)

			value, ok := values[name.Base]
			if !ok {
				value = Value{Kind: name.Kind}
			}

			if err := n.validator.ValidateField(ctx, field, value); err != nil {
				return nil, &FieldError{Field: name.Base, Err: err}
			}
		}
	}

	return values, nil
}

// Serialize flattens normalized values into the engine's string parameters.
func Serialize(values map[string]Value) (map[string]string, error) {
	params := make(map[string]string, len(values))

	for name, value := range values {
		serialized, err := value.Serialize()
		if err != nil {
			return nil, fmt.Errorf("serialize %s: %w", name, err)
		}

		params[name] = serialized
	}

	return params, nil
}

type nameSet struct {
	exact    map[string]bool
	mappings map[string]bool
}

func acceptedNames(offered []models.FieldDescriptor) nameSet {
	set := nameSet{exact: make(map[string]bool), mappings: make(map[string]bool)}

	for _, field := range offered {
		set.exact[field.Name] = true

		if name := ParseName(field.Name); name.Kind == KindMapping && name.Key == "" {
			set.mappings[name.Base] = true
		}
	}

	return set
}

func (s nameSet) allows(raw string, name Name) bool {
	if s.exact[raw] {
		return true
	}

	return name.Kind == KindMapping && s.mappings[name.Base]
}

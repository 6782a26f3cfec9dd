package fields

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/operion-forms/pkg/models"
	"github.com/go-playground/validator/v10"
)

var errRequired = errors.New("value is required")

// StructValidator enforces the required flag and the field's validator rule
// on every submitted element.
type StructValidator struct {
	validate *validator.Validate
}

func NewStructValidator() *StructValidator {
	return &StructValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (v *StructValidator) ValidateField(ctx context.Context, field models.FieldDescriptor, value Value) error {
	if value.Empty() {
		if field.Required {
			return fmt.Errorf("%w: %w", ErrInvalidField, errRequired)
		}

		return nil
	}

	if field.Validate == "" {
		return nil
	}

	for _, element := range value.Elements() {
		if err := v.validate.VarCtx(ctx, element, field.Validate); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidField, err)
		}
	}

	return nil
}

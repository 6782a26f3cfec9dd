package web

import (
	"errors"
	"log/slog"

	"github.com/dukex/operion-forms/pkg/engine"
	"github.com/dukex/operion-forms/pkg/forms"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleFormsError maps a forms failure onto exactly one problem response.
func handleFormsError(c fiber.Ctx, logger *slog.Logger, err error) error {
	var formsErr *forms.Error

	detail := err.Error()
	if errors.As(err, &formsErr) {
		detail = formsErr.Status()
	}

	switch {
	case engine.IsNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("workflow_not_found").
			WithDetail(detail)

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case engine.IsUnauthorized(err):
		problem := problems.NewStatusProblem(403).
			WithInstance(c.Path()).
			WithType("unauthorized").
			WithDetail(detail)

		return c.Status(fiber.StatusForbidden).JSON(problem)

	case forms.IsRequestError(err):
		problem := problems.NewStatusProblem(400).
			WithInstance(c.Path()).
			WithType("invalid_request").
			WithDetail(detail)

		return c.Status(fiber.StatusBadRequest).JSON(problem)

	case forms.IsDefinitionError(err), forms.IsDelegationError(err):
		logger.ErrorContext(c.Context(), "Workflow configuration error", "path", c.Path(), "error", err)

		problem := problems.NewStatusProblem(500).
			WithInstance(c.Path()).
			WithType(string(forms.KindOf(err)) + "_error").
			WithDetail("workflow is misconfigured")

		return c.Status(fiber.StatusInternalServerError).JSON(problem)

	default:
		logger.WarnContext(c.Context(), "Engine call failed", "path", c.Path(), "error", err)

		problem := problems.NewStatusProblem(502).
			WithInstance(c.Path()).
			WithType("engine_error").
			WithDetail(detail)

		return c.Status(fiber.StatusBadGateway).JSON(problem)
	}
}

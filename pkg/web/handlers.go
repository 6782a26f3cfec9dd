// Package web exposes workflow forms over HTTP.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/operion-forms/pkg/engine"
	"github.com/dukex/operion-forms/pkg/fields"
	"github.com/dukex/operion-forms/pkg/forms"
	"github.com/dukex/operion-forms/pkg/models"
	"github.com/dukex/operion-forms/pkg/registry"
	"github.com/dukex/operion-forms/pkg/session"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// StoreHealthChecker is implemented by session stores that can report health.
type StoreHealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type FormHandlers struct {
	executor  *forms.Executor
	catalog   Catalog
	store     session.Store
	registry  *registry.Registry
	validator *validator.Validate
	logger    *slog.Logger
}

func NewFormHandlers(
	executor *forms.Executor,
	catalog Catalog,
	store session.Store,
	registry *registry.Registry,
	validator *validator.Validate,
	logger *slog.Logger,
) *FormHandlers {
	return &FormHandlers{
		executor:  executor,
		catalog:   catalog,
		store:     store,
		registry:  registry,
		validator: validator,
		logger:    logger.With("module", "web"),
	}
}

// GetTypes lists the workflow types the caller's role may create.
func (h *FormHandlers) GetTypes(c fiber.Ctx) error {
	role := c.Get(RoleHeader)
	response := TypesResponse{Types: []TypeSummary{}}

	for _, workflowType := range h.catalog.Types() {
		definition, err := h.catalog.Get(workflowType)
		if err != nil || !definition.Allowed(role, models.OperationCreate) {
			continue
		}

		response.Types = append(response.Types, TypeSummary{
			Type:        definition.Type,
			Label:       definition.Label,
			Description: definition.Description,
		})
	}

	return c.JSON(response)
}

func (h *FormHandlers) Index(c fiber.Ctx) error {
	req := indexRequest{Type: c.Params("type")}
	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.executor.Index(h.context(c), h.request(c, nil), req.Type)
	if err != nil {
		return handleFormsError(c, h.logger, err)
	}

	return c.JSON(result)
}

func (h *FormHandlers) Load(c fiber.Ctx) error {
	req := loadRequest{ID: c.Params("id")}
	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.executor.Load(h.context(c), h.request(c, nil), req.ID)
	if err != nil {
		return handleFormsError(c, h.logger, err)
	}

	return c.JSON(result)
}

func (h *FormHandlers) Action(c fiber.Ctx) error {
	result, err := h.executor.Submit(h.context(c), h.request(c, postPairs(c)))
	if err != nil {
		return handleFormsError(c, h.logger, err)
	}

	return c.JSON(result)
}

func (h *FormHandlers) Select(c fiber.Ctx) error {
	result, err := h.executor.Select(h.context(c), h.request(c, postPairs(c)))
	if err != nil {
		return handleFormsError(c, h.logger, err)
	}

	return c.JSON(result)
}

func (h *FormHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()

	storeCheck, storeOk := "session store is in memory", true

	if checker, ok := h.store.(StoreHealthChecker); ok {
		storeCheck = "session store is reachable"

		if err := checker.HealthCheck(c.Context()); err != nil {
			storeCheck, storeOk = err.Error(), false
		}
	}

	status := "unhealthy"
	message := "Operion forms is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && storeOk {
		status = "healthy"
		message = "Operion forms is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry": registryCheck,
			"session":  storeCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *FormHandlers) context(c fiber.Ctx) context.Context {
	return engine.WithRole(c.Context(), c.Get(RoleHeader))
}

func (h *FormHandlers) request(c fiber.Ctx, params fields.Pairs) *forms.Request {
	return &forms.Request{
		Session:   sessionStore(c, h.store),
		SessionID: sessionID(c),
		Params:    params,
	}
}

// postPairs returns the form body in submitted order, repeated names included.
func postPairs(c fiber.Ctx) fields.Pairs {
	var pairs fields.Pairs

	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		pairs = append(pairs, fields.Pair{Name: string(key), Value: string(value)})
	})

	return pairs
}

// Package main provides the Operion forms server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/dukex/operion-forms/pkg/definition"
	"github.com/dukex/operion-forms/pkg/engine"
	"github.com/dukex/operion-forms/pkg/eventbus"
	"github.com/dukex/operion-forms/pkg/fields"
	"github.com/dukex/operion-forms/pkg/forms"
	"github.com/dukex/operion-forms/pkg/registry"
	"github.com/dukex/operion-forms/pkg/session"
	"github.com/dukex/operion-forms/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"
)

const basePath = "/workflow"

type API struct {
	logger   *slog.Logger
	catalog  *definition.Catalog
	registry *registry.Registry
	engine   engine.Client
	store    session.Store
	validate *validator.Validate

	eventBus    eventbus.EventBus
	tracer      trace.Tracer
	staleCheck  bool
	serveEngine bool
}

func NewAPI(
	logger *slog.Logger,
	catalog *definition.Catalog,
	registry *registry.Registry,
	engine engine.Client,
	store session.Store,
) *API {
	return &API{
		logger:   logger,
		catalog:  catalog,
		registry: registry,
		engine:   engine,
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) WithEventBus(eventBus eventbus.EventBus) *API {
	a.eventBus = eventBus

	return a
}

func (a *API) WithTracer(tracer trace.Tracer) *API {
	a.tracer = tracer

	return a
}

func (a *API) WithStaleCheck(enabled bool) *API {
	a.staleCheck = enabled

	return a
}

// ServeEngine exposes the engine on /engine/:command for other frontends.
func (a *API) ServeEngine(enabled bool) *API {
	a.serveEngine = enabled

	return a
}

func (a *API) executor() *forms.Executor {
	normalizer := fields.NewNormalizer(fields.WithValidator(fields.NewStructValidator()))

	opts := []forms.ExecutorOption{
		forms.WithNormalizer(normalizer),
		forms.WithStaleCheck(a.staleCheck),
	}

	if a.tracer != nil {
		opts = append(opts, forms.WithTracer(a.tracer))
	}

	if a.eventBus != nil {
		opts = append(opts, forms.WithPublisher(a.eventBus))
	}

	dispatcher := forms.NewDispatcher(a.registry, a.logger, forms.WithBasePath(basePath))

	return forms.NewExecutor(a.engine, dispatcher, a.logger, opts...)
}

func (a *API) App() *fiber.App {
	handlers := web.NewFormHandlers(a.executor(), a.catalog, a.store, a.registry, a.validate, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Operion forms")
	})

	w := app.Group(basePath, web.SessionMiddleware())
	w.Get("/types", handlers.GetTypes)
	w.Get("/index/:type", handlers.Index)
	w.Get("/load/:id", handlers.Load)
	w.Post("/action", handlers.Action)
	w.Post("/select", handlers.Select)

	if a.serveEngine {
		engineHandlers := web.NewEngineHandlers(a.engine, a.logger)
		app.Post("/engine/:command", engineHandlers.Command)
	}

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}

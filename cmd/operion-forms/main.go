package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dukex/operion-forms/pkg/cmd"
	"github.com/dukex/operion-forms/pkg/log"
	"github.com/dukex/operion-forms/pkg/otelhelper"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort       = 9092
	defaultSessionTTL = 30 * time.Minute
)

func main() {
	command := &cli.Command{
		Name:                  "operion-forms",
		Usage:                 "Render workflow instances as forms and dispatch submissions",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the forms server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "definitions-path",
				Usage:   "Directory with workflow definition YAML files",
				Sources: cli.EnvVars("DEFINITIONS_PATH"),
			},
			&cli.StringFlag{
				Name:    "engine-url",
				Usage:   "Base URL of a remote workflow engine. The in-process engine is used when empty",
				Sources: cli.EnvVars("ENGINE_URL"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Instance store of the in-process engine (postgres:// URL or directory). Instances stay in memory when empty",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.BoolFlag{
				Name:    "serve-engine",
				Usage:   "Expose the in-process engine on /engine/:command",
				Sources: cli.EnvVars("SERVE_ENGINE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the session store. Sessions are kept in memory when empty",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.DurationFlag{
				Name:    "session-ttl",
				Usage:   "How long pending form tokens stay valid",
				Value:   defaultSessionTTL,
				Sources: cli.EnvVars("SESSION_TTL"),
			},
			&cli.StringFlag{
				Name:     "plugins-path",
				Usage:    "Path to the directory containing handler and action plugins",
				Value:    "./plugins",
				Required: false,
				Sources:  cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka). Events are not published when empty",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Value:   "localhost:9092",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.BoolFlag{
				Name:    "audit-events",
				Usage:   "Log every published workflow event",
				Sources: cli.EnvVars("AUDIT_EVENTS"),
			},
			&cli.BoolFlag{
				Name:    "stale-check",
				Usage:   "Reject submissions whose form was rendered before the last instance update",
				Sources: cli.EnvVars("STALE_CHECK"),
			},
			&cli.BoolFlag{
				Name:    "otel-enabled",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("forms")

	logger.InfoContext(ctx, "Initializing Operion forms")

	registry, err := cmd.NewRegistry(logger, command.String("plugins-path"))
	if err != nil {
		return err
	}

	catalog, err := cmd.NewCatalog(command.String("definitions-path"))
	if err != nil {
		return err
	}

	if err := catalog.Verify(registry); err != nil {
		return fmt.Errorf("workflow definitions reference unknown handlers: %w", err)
	}

	store, err := cmd.NewSessionStore(ctx, command.String("redis-url"), command.Duration("session-ttl"), logger)
	if err != nil {
		return err
	}

	if closer, ok := store.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.ErrorContext(ctx, "Failed to close session store", "error", err)
			}
		}()
	}

	engineURL := command.String("engine-url")

	instances, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	if instances != nil {
		defer func() {
			if err := instances.Close(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
			}
		}()
	}

	client, err := cmd.NewEngine(ctx, engineURL, catalog, registry, instances, logger)
	if err != nil {
		return err
	}

	api := NewAPI(logger, catalog, registry, client, store).
		WithStaleCheck(command.Bool("stale-check")).
		ServeEngine(engineURL == "" && command.Bool("serve-engine"))

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
	if err != nil {
		return err
	}

	if eventBus != nil {
		defer func() {
			if err := eventBus.Close(); err != nil {
				logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
			}
		}()

		if command.Bool("audit-events") {
			if err := setupAuditLog(ctx, eventBus, logger); err != nil {
				return err
			}
		}

		api.WithEventBus(eventBus)
	}

	if command.Bool("otel-enabled") {
		tracer, shutdown, err := otelhelper.NewTracer(ctx, "operion-forms")
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}

		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.ErrorContext(ctx, "Failed to flush traces", "error", err)
			}
		}()

		api.WithTracer(tracer)
	}

	logger.InfoContext(ctx, "Serving workflow types", "types", catalog.Types())

	if err := api.Start(command.Int("port")); err != nil {
		logger.ErrorContext(ctx, "Failed to start forms server", "error", err)

		return err
	}

	return nil
}

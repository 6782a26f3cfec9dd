package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/operion-forms/pkg/definition"
	"github.com/dukex/operion-forms/pkg/engine"
	"github.com/dukex/operion-forms/pkg/engine/httpclient"
	"github.com/dukex/operion-forms/pkg/engine/memory"
	"github.com/dukex/operion-forms/pkg/models"
	"github.com/dukex/operion-forms/pkg/persistence"
	"github.com/dukex/operion-forms/pkg/registry"
	"github.com/dukex/operion-forms/pkg/session"
	"github.com/dukex/operion-forms/pkg/workflows/search"
)

const engineRetries = 2

// NewCatalog loads the definitions below definitionsPath together with the
// bundled search workflow. Files on disk win over bundled types.
func NewCatalog(definitionsPath string) (*definition.Catalog, error) {
	bundled, err := search.Definitions()
	if err != nil {
		return nil, fmt.Errorf("failed to parse bundled definitions: %w", err)
	}

	byType := make(map[string]*models.WorkflowDefinition, len(bundled))
	for _, d := range bundled {
		byType[d.Type] = d
	}

	if definitionsPath != "" {
		loaded, err := definition.LoadDir(definitionsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load definitions: %w", err)
		}

		for _, d := range loaded {
			byType[d.Type] = d
		}
	}

	definitions := make([]*models.WorkflowDefinition, 0, len(byType))
	for _, d := range byType {
		definitions = append(definitions, d)
	}

	return definition.NewCatalog(definitions...)
}

// NewEngine returns a client for the engine at engineURL, or the in-process
// reference engine when engineURL is empty. The in-process engine writes
// through to store and starts from its contents when store is not nil.
//
//nolint:ireturn
func NewEngine(
	ctx context.Context,
	engineURL string,
	catalog *definition.Catalog,
	reg *registry.Registry,
	store persistence.Persistence,
	logger *slog.Logger,
) (engine.Client, error) {
	if engineURL != "" {
		logger.InfoContext(ctx, "Using remote workflow engine", "url", engineURL)

		return httpclient.New(engineURL, logger, httpclient.WithRetries(engineRetries)), nil
	}

	logger.InfoContext(ctx, "Using in-process workflow engine", "persistent", store != nil)

	var opts []memory.Option
	if store != nil {
		opts = append(opts, memory.WithPersistence(store))
	}

	e := memory.New(catalog, reg, logger, opts...)

	if err := e.Restore(ctx); err != nil {
		return nil, err
	}

	return e, nil
}

// NewSessionStore returns a Redis backed store for redisURL, or an in-memory
// one when redisURL is empty. The in-memory store sweeps expired entries in
// the background until it is closed.
//
//nolint:ireturn
func NewSessionStore(ctx context.Context, redisURL string, ttl time.Duration, logger *slog.Logger) (session.Store, error) {
	if redisURL == "" {
		store := session.NewMemoryStore(ttl)

		if ttl > 0 {
			if err := store.StartSweeper(session.DefaultSweepSchedule, logger); err != nil {
				return nil, err
			}
		}

		return store, nil
	}

	store, err := session.NewRedisStoreFromURL(ctx, redisURL, session.WithTTL(ttl))
	if err != nil {
		return nil, fmt.Errorf("failed to connect session store: %w", err)
	}

	return store, nil
}

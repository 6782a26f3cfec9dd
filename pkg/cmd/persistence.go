package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukex/operion-forms/pkg/persistence"
	"github.com/dukex/operion-forms/pkg/persistence/file"
	"github.com/dukex/operion-forms/pkg/persistence/postgresql"
)

// NewPersistence opens the instance store named by databaseURL. postgres://
// and postgresql:// URLs use PostgreSQL, anything else is a directory. An
// empty URL keeps instances in memory only.
//
//nolint:ireturn
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "":
		return nil, nil
	case "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger.With("module", "postgresql"), databaseURL)
		if err != nil {
			return nil, err
		}

		return store, nil
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	if databaseURL == "" {
		return ""
	}

	scheme, _, found := strings.Cut(databaseURL, "://")
	if found && (scheme == "postgres" || scheme == "postgresql") {
		return "postgresql"
	}

	return "file"
}

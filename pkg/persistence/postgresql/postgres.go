// Package postgresql provides PostgreSQL persistence for workflow instances.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/operion-forms/pkg/models"
	"github.com/dukex/operion-forms/pkg/persistence"
	"github.com/dukex/operion-forms/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements persistence.Persistence on PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPersistence connects to databaseURL and runs the schema migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{db: database, logger: logger}, nil
}

func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) Instances(ctx context.Context) ([]*models.WorkflowInstance, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, workflow_type, state, context, last_update
		FROM workflow_instances
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query instances: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			p.logger.ErrorContext(ctx, "Failed to close rows", "error", err)
		}
	}()

	var instances []*models.WorkflowInstance

	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}

		instances = append(instances, instance)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate instances: %w", err)
	}

	return instances, nil
}

func (p *Persistence) InstanceByID(ctx context.Context, id string) (*models.WorkflowInstance, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, workflow_type, state, context, last_update
		FROM workflow_instances
		WHERE id = $1
	`, id)

	instance, err := scanInstance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewInstanceError("InstanceByID", id, persistence.ErrInstanceNotFound)
	}

	if err != nil {
		return nil, persistence.NewInstanceError("InstanceByID", id, err)
	}

	return instance, nil
}

func (p *Persistence) SaveInstance(ctx context.Context, instance *models.WorkflowInstance) error {
	if instance.ID == "" {
		return persistence.NewInstanceError("SaveInstance", instance.ID, persistence.ErrInvalidInstanceID)
	}

	record := persistence.Record(instance)

	workflowCtx, err := json.Marshal(record.Context)
	if err != nil {
		return persistence.NewInstanceError("SaveInstance", instance.ID, fmt.Errorf("failed to marshal context: %w", err))
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO workflow_instances (id, workflow_type, state, context, last_update)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			workflow_type = EXCLUDED.workflow_type,
			state = EXCLUDED.state,
			context = EXCLUDED.context,
			last_update = EXCLUDED.last_update
	`, record.ID, record.Type, record.State, workflowCtx, record.LastUpdate)
	if err != nil {
		return persistence.NewInstanceError("SaveInstance", instance.ID, err)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInstance(row scanner) (*models.WorkflowInstance, error) {
	var (
		instance    models.WorkflowInstance
		workflowCtx []byte
	)

	err := row.Scan(&instance.ID, &instance.Type, &instance.State, &workflowCtx, &instance.LastUpdate)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(workflowCtx, &instance.Context); err != nil {
		return nil, fmt.Errorf("failed to unmarshal context of instance %s: %w", instance.ID, err)
	}

	instance.LastUpdate = instance.LastUpdate.UTC()

	return &instance, nil
}

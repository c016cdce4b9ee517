// Package postgresql provides a PostgreSQL persistence implementation for automations and templates.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/automations/pkg/persistence"
	"github.com/dukex/automations/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements persistence.Store for PostgreSQL. Definitions are
// stored as JSONB documents.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ persistence.Store = (*Persistence)(nil)

// NewPersistence connects to databaseURL and runs pending migrations.
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

	err = sqlbase.NewMigrationManager(logger, database, migrations()).RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{db: database, logger: logger}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return persistence.NewAutomationError("HealthCheck", "", fmt.Errorf("%w: %v", persistence.ErrUnavailable, err))
	}

	return nil
}

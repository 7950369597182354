package migration

import (
	"context"
	"database/sql"
	"embed"

	"rubik/internal/errors"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version(ctx context.Context, db *sqlx.DB) (int64, error)
}

// MigrationRunner applies the embedded goose migrations
type MigrationRunner struct{}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{}
}

// upContext is a seam for tests
var upContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

func setup() error {
	goose.SetBaseFS(migrations)
	return goose.SetDialect("postgres")
}

// Run executes all pending migrations in order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := setup(); err != nil {
		return errors.Wrap(err, "failed to configure goose")
	}
	if err := upContext(ctx, db.DB, "migrations"); err != nil {
		return errors.DatabaseError("failed to apply migrations", err)
	}
	return nil
}

// Version returns the currently applied schema version
func (r *MigrationRunner) Version(ctx context.Context, db *sqlx.DB) (int64, error) {
	if err := setup(); err != nil {
		return 0, errors.Wrap(err, "failed to configure goose")
	}
	v, err := goose.GetDBVersionContext(ctx, db.DB)
	if err != nil {
		return 0, errors.DatabaseError("failed to read schema version", err)
	}
	return v, nil
}

package database

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Dialect selects a migration set.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

func (d Dialect) dir() (string, error) {
	switch d {
	case Postgres:
		return "migrations/postgres", nil
	case SQLite:
		return "migrations/sqlite", nil
	default:
		return "", fmt.Errorf("unsupported migration dialect %q", string(d))
	}
}

// RunMigrations executes all pending database migrations
func RunMigrations(db *sql.DB, dialect Dialect, logger *zap.Logger) error {
	dir, err := setup(dialect)
	if err != nil {
		return err
	}

	logger.Info("Checking for pending migrations...", zap.String("dialect", string(dialect)))

	if err := goose.Up(db, dir); err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Migrations completed successfully")
	return nil
}

// MigrationVersion returns the version of the newest applied migration.
func MigrationVersion(db *sql.DB, dialect Dialect) (int64, error) {
	if _, err := setup(dialect); err != nil {
		return 0, err
	}
	version, err := goose.GetDBVersion(db)
	if err != nil {
		return 0, fmt.Errorf("failed to read migration version: %w", err)
	}
	return version, nil
}

func setup(dialect Dialect) (string, error) {
	dir, err := dialect.dir()
	if err != nil {
		return "", err
	}
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(string(dialect)); err != nil {
		return "", fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return dir, nil
}

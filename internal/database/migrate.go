package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUnknownAction is returned by Migrator.Apply for an unsupported action.
var ErrUnknownAction = errors.New("unknown migration action")

// OpenSQL opens a database/sql handle over pgx, which golang-migrate needs,
// and returns the database name parsed from dsn.
func OpenSQL(dsn string) (*sql.DB, string, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, "", fmt.Errorf("parse database url: %w", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, "", fmt.Errorf("open database: %w", err)
	}

	return db, cfg.Database, nil
}

type Migrator struct {
	m *migrate.Migrate
}

func NewMigrator(db *sql.DB, dbName string) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{
		DatabaseName: dbName,
	})
	if err != nil {
		return nil, fmt.Errorf("create postgres driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dbName, driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}

	return &Migrator{m: m}, nil
}

// Apply runs one of up, down, version or force and describes the outcome.
func (m *Migrator) Apply(action string, version int) (string, error) {
	switch action {
	case "up":
		if err := m.Up(); err != nil {
			return "", err
		}
		return "migrations applied", nil

	case "down":
		if err := m.Down(); err != nil {
			return "", err
		}
		return "last migration rolled back", nil

	case "version":
		v, dirty, err := m.Version()
		if err != nil {
			return "", err
		}
		if dirty {
			return fmt.Sprintf("version %d (dirty, migration incomplete)", v), nil
		}
		return fmt.Sprintf("version %d", v), nil

	case "force":
		if version <= 0 {
			return "", errors.New("force needs a positive version")
		}
		if err := m.Force(version); err != nil {
			return "", err
		}
		return fmt.Sprintf("version forced to %d", version), nil

	default:
		return "", fmt.Errorf("%w: %q (use up, down, version or force)", ErrUnknownAction, action)
	}
}

// Up applies all pending migrations; nothing to do is not an error.
func (m *Migrator) Up() error {
	err := m.m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Down rolls back the last migration (DEV ONLY)
func (m *Migrator) Down() error {
	if err := m.m.Steps(-1); err != nil {
		return fmt.Errorf("rollback migration: %w", err)
	}
	return nil
}

// Version reports 0 for a database that was never migrated.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get version: %w", err)
	}
	return version, dirty, nil
}

// Force sets the migration version without running migrations (DANGEROUS)
func (m *Migrator) Force(version int) error {
	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("force version: %w", err)
	}
	return nil
}

func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	if srcErr != nil {
		return fmt.Errorf("close source: %w", srcErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close database: %w", dbErr)
	}
	return nil
}

// Package swapdb persists the coordinator's pending-swap table and the
// Bitcoin observer's processed-txid idempotency cache (§3.1-3.3) across
// restarts. Adapted from the teacher's db/factory.go store-construction
// shape, collapsed from tapdb's multi-store asset database down to the
// two tables this system actually needs.
package swapdb

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Config configures the swap database.
type Config struct {
	// DBPath is the sqlite file path, or ":memory:" for an ephemeral
	// database (used by itest).
	DBPath string

	// SkipMigrations skips running migrations on Open, for callers that
	// already migrated an externally-managed handle.
	SkipMigrations bool
}

// Open opens (creating if necessary) the swap database and brings its
// schema up to date.
func Open(cfg Config) (*sql.DB, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("swapdb: db path is required")
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, wrap(fmt.Errorf("swapdb: open: %w", err))
	}
	// SQLite only supports one writer; serialize through a single
	// connection rather than racing writers across a pool.
	db.SetMaxOpenConns(1)

	if cfg.SkipMigrations {
		return db, nil
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func migrateUp(db *sql.DB) error {
	srcDriver, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return wrap(fmt.Errorf("swapdb: load migrations: %w", err))
	}

	dbDriver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return wrap(fmt.Errorf("swapdb: migration driver: %w", err))
	}

	m, err := migrate.NewWithInstance("iofs", srcDriver, "sqlite", dbDriver)
	if err != nil {
		return wrap(fmt.Errorf("swapdb: migrate init: %w", err))
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return wrap(fmt.Errorf("swapdb: migrate up: %w", err))
	}
	return nil
}

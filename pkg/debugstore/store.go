package debugstore

import (
	"context"
	stdsql "database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" database/sql driver
)

//go:embed migrations
var migrationsFS embed.FS

// Store is the embedded relational store backing the Debug Logger &
// Replay Engine. Every method opens a connection from the pool, executes,
// and returns it (spec.md §5: "no held connections across external
// calls"), the same discipline the teacher's pkg/database.Client follows
// against its own Postgres pool, pointed here at a second, embedded
// database per spec.md §4.F's storage note.
type Store struct {
	db *stdsql.DB
}

// New opens (creating if absent) the sqlite database at dsn and applies
// pending migrations. Pass ":memory:" for an ephemeral, test-only store.
func New(dsn string) (*Store, error) {
	db, err := stdsql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("debugstore: open %s: %w", dsn, err)
	}
	// A single shared connection avoids sqlite's "database is locked"
	// errors under concurrent writers from multiple request goroutines;
	// reads and writes are serialized by the driver regardless.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("debugstore: enable foreign keys: %w", err)
	}

	store := &Store{db: db}
	if err := store.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Migrate applies every pending embedded migration.
func (s *Store) Migrate(ctx context.Context) error {
	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("debugstore: sqlite3 migrate driver: %w", err)
	}
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("debugstore: migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "debugstore", driver)
	if err != nil {
		return fmt.Errorf("debugstore: migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("debugstore: apply migrations: %w", err)
	}
	return sourceDriver.Close()
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

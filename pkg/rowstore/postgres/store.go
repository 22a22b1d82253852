// Package postgres implements pkg/query.RowStore on top of a pgx-backed
// database/sql connection pool, the default concrete storage backend for
// the hotel ontology's registered entities.
package postgres

import (
	"context"
	stdsql "database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

//go:embed migrations
var migrationsFS embed.FS

// Config holds connection and pooling parameters, mirrored off the
// teacher's pkg/database.Config.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Store wraps a pooled *sql.DB and implements query.RowStore.
type Store struct {
	db *stdsql.DB
}

// NewStore opens a pgx-backed connection pool, pings it, and applies any
// pending embedded migrations.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := stdsql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("rowstore: open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("rowstore: ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.Migrate(cfg.Database); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewStoreFromDB wraps an already-open connection without running
// migrations; tests that set up their own testcontainer pool call Migrate
// on the result.
func NewStoreFromDB(db *stdsql.DB) *Store {
	return &Store{db: db}
}

// Migrate applies every pending embedded migration against the named
// database (used only for the migrate instance's lock namespace).
func (s *Store) Migrate(databaseName string) error {
	driver, err := postgres.WithInstance(s.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("rowstore: postgres migrate driver: %w", err)
	}
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("rowstore: migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, databaseName, driver)
	if err != nil {
		return fmt.Errorf("rowstore: migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("rowstore: apply migrations: %w", err)
	}
	return sourceDriver.Close()
}

// DB returns the underlying pool for callers that need a raw connection
// (fixture seeding, health checks).
func (s *Store) DB() *stdsql.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

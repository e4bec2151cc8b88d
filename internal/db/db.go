// Package db owns the PostgreSQL connection for the review history
// store and keeps its schema current with embedded migrations.
package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	_ "github.com/lib/pq"

	"github.com/revware/pr-sentinel/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const connectTimeout = 5 * time.Second

// DB is the pooled connection backing the review history store.
type DB struct {
	*sqlx.DB
}

// NewDatabase connects, tunes the pool, and migrates the schema. The
// returned cleanup closes the pool; a failed open never leaks one.
func NewDatabase(cfg *config.DBConfig) (*DB, func(), error) {
	conn, err := open(cfg)
	if err != nil {
		return nil, func() {}, err
	}

	database := &DB{DB: conn}
	if err := database.Migrate(); err != nil {
		_ = conn.Close()
		return nil, func() {}, err
	}

	cleanup := func() {
		if err := conn.Close(); err != nil {
			slog.Error("closing review history database", "error", err)
		}
	}
	return database, cleanup, nil
}

func open(cfg *config.DBConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database)

	conn, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to review history database: %w", err)
	}
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("pinging review history database: %w", err)
	}
	return conn, nil
}

// Migrate applies pending embedded migrations. A dirty schema from an
// earlier failed run stops startup so it gets fixed by hand rather than
// papered over.
func (db *DB) Migrate() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}
	driver, err := postgres.WithInstance(db.DB.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}

	version, dirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("reading migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("schema is dirty at version %d, run 'migrate force' after inspecting it", version)
	}

	slog.Info("applying review history migrations")
	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

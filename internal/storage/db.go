package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/gitship/gitship/internal/config"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

//go:embed migrations/*.sql
var migrations embed.FS

type DB struct {
	*sql.DB
}

// New opens the database in the gitship data directory and applies migrations.
func New() (*DB, error) {
	path, err := config.DBPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	return Open(path)
}

// Open opens the sqlite database at dsn and applies migrations. Use ":memory:" in tests.
func Open(dsn string) (*DB, error) {
	rawDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	rawDB.SetMaxOpenConns(1)

	if _, err := rawDB.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		rawDB.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := rawDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		rawDB.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	db := &DB{rawDB}
	if err := db.Migrate(); err != nil {
		rawDB.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies all pending migrations.
func (db *DB) Migrate() error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db.DB, fsys)
	if err != nil {
		return fmt.Errorf("failed to prepare migrations: %w", err)
	}
	if _, err := provider.Up(context.Background()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

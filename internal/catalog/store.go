// Package catalog persists owned and installed games in SQLite.
//
// Each provider has its own table. Every bulk operation runs in a single
// transaction, so readers observe either the state before a pass or the
// state after it.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	// SQLite driver, registers "sqlite". Pure Go, no CGO.
	_ "modernc.org/sqlite"

	gderr "github.com/adamancini/gamedeck/internal/errors"
	"github.com/adamancini/gamedeck/internal/logging"
)

// currentSchemaVersion is the current database schema version.
const currentSchemaVersion = 1

// Store is the catalog repository.
type Store struct {
	db  *sql.DB
	log *logrus.Entry
}

// Open opens or creates the catalog at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, gderr.New(gderr.ErrCodeInvalidInput, "catalog path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, gderr.StoreFailed("open", fmt.Errorf("create db dir: %w", err))
	}

	// WAL lets readers keep their snapshot while a pass commits.
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, gderr.StoreFailed("open", err)
	}
	return newStore(db, path)
}

// OpenMemory opens a private in-memory catalog.
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, gderr.StoreFailed("open", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	return newStore(db, ":memory:")
}

func newStore(db *sql.DB, path string) (*Store, error) {
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, gderr.StoreFailed("open", fmt.Errorf("ping database: %w", err))
	}

	s := &Store{db: db, log: logging.NewLogger("catalog")}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, gderr.StoreFailed("open", fmt.Errorf("init schema: %w", err))
	}

	s.log.WithField("path", path).Debugf("catalog ready (schema version %d)", currentSchemaVersion)
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// initSchema applies pending migrations.
func (s *Store) initSchema() error {
	const schemaVersionTable = `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		);
	`
	if _, err := s.db.Exec(schemaVersionTable); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version); err != nil {
		return fmt.Errorf("check schema version: %w", err)
	}

	if version < 1 {
		if err := s.migrateToV1(); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}

	return nil
}

// migrateToV1 creates the provider tables.
func (s *Store) migrateToV1() error {
	s.log.Debug("applying migration to schema version 1")

	const tables = `
		CREATE TABLE IF NOT EXISTS steam_games (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			steam_id TEXT UNIQUE,
			img_icon_url TEXT,
			install_location TEXT NOT NULL DEFAULT '',
			is_installed INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS epic_games (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			app_name TEXT UNIQUE,
			thumbnail_url TEXT,
			install_location TEXT NOT NULL DEFAULT '',
			is_installed INTEGER NOT NULL DEFAULT 0
		);
	`

	return s.WithTransaction(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(tables); err != nil {
			return fmt.Errorf("create game tables: %w", err)
		}
		_, err := tx.Exec(
			"INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
			1,
			time.Now().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("record migration: %w", err)
		}
		return nil
	})
}

// WithTransaction runs fn in a transaction.
// The transaction commits when fn returns nil and rolls back when fn returns
// an error or panics. A panic is re-raised after the rollback.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.WithError(rbErr).Warn("rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

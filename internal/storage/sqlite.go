// Package storage persists the remote configuration and the command audit log in SQLite.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	// Pure-Go SQLite driver, registers "sqlite".
	_ "modernc.org/sqlite"
)

// ErrRemoteConfigNotFound is returned when no remote configuration has been saved.
var ErrRemoteConfigNotFound = errors.New("remote configuration not found")

// SQLiteStore holds the configuration record and the command log.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	logger zerolog.Logger
}

// NewSQLiteStore opens or creates the database at path and applies pending migrations.
// Use ":memory:" for a throwaway database.
func NewSQLiteStore(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	logger.Debug().Str("path", path).Msg("opening database")

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, logger: logger}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	logger.Info().
		Str("path", path).
		Int("schema_version", currentSchemaVersion).
		Msg("database ready")
	return store, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	s.logger.Debug().Msg("closing database")
	return s.db.Close()
}

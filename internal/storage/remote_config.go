package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fgeck/pumpkin-control/internal/models"
)

// SaveRemoteConfig replaces any stored configuration with cfg in one transaction.
func (s *SQLiteStore) SaveRemoteConfig(ctx context.Context, cfg models.RemoteConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM remote_config"); err != nil {
		return fmt.Errorf("clear remote config: %w", err)
	}

	savedAt := cfg.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}

	const insertQuery = `
		INSERT INTO remote_config (id, host, port, username, secret, saved_at)
		VALUES (1, ?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, insertQuery,
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, savedAt.UTC().UnixNano(),
	); err != nil {
		return fmt.Errorf("insert remote config: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit remote config: %w", err)
	}

	s.logger.Debug().Str("host", cfg.Host).Int("port", cfg.Port).Msg("remote config saved")
	return nil
}

// GetRemoteConfig returns the stored configuration including its secret.
// It returns ErrRemoteConfigNotFound when nothing has been saved.
func (s *SQLiteStore) GetRemoteConfig(ctx context.Context) (*models.RemoteConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		cfg     models.RemoteConfig
		savedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT host, port, username, secret, saved_at FROM remote_config WHERE id = 1",
	).Scan(&cfg.Host, &cfg.Port, &cfg.Username, &cfg.Password, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRemoteConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query remote config: %w", err)
	}

	cfg.SavedAt = time.Unix(0, savedAt).UTC()
	return &cfg, nil
}

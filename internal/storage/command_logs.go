package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/fgeck/pumpkin-control/internal/models"
)

// AppendCommandLog inserts one audit entry. Entries are never updated.
func (s *SQLiteStore) AppendCommandLog(ctx context.Context, entry *models.CommandLogEntry) error {
	if entry == nil {
		return fmt.Errorf("command log entry cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	const insertQuery = `
		INSERT INTO command_logs (entry_id, command, output, error, exit_status, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, insertQuery,
		entry.ID,
		entry.Command,
		entry.Output,
		entry.Error,
		entry.ExitStatus,
		entry.Timestamp.UTC().UnixNano(),
	); err != nil {
		return fmt.Errorf("insert command log: %w", err)
	}

	return nil
}

// ListCommandLogs returns at most limit entries, newest first.
// A limit of zero or less returns every entry.
func (s *SQLiteStore) ListCommandLogs(ctx context.Context, limit int) ([]models.CommandLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT entry_id, command, output, error, exit_status, timestamp
		FROM command_logs
		ORDER BY timestamp DESC, id DESC
	`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query command logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []models.CommandLogEntry{}
	for rows.Next() {
		var (
			entry models.CommandLogEntry
			ts    int64
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.Command,
			&entry.Output,
			&entry.Error,
			&entry.ExitStatus,
			&ts,
		); err != nil {
			return nil, fmt.Errorf("scan command log row: %w", err)
		}
		entry.Timestamp = time.Unix(0, ts).UTC()
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate command log rows: %w", err)
	}

	return entries, nil
}

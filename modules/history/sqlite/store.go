package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/flemzord/bootunpack/internal/history"
)

// Store implements history.Store on SQLite.
type Store struct {
	db *sql.DB
}

var _ history.Store = (*Store)(nil)

// Append implements history.Store.
func (s *Store) Append(ctx context.Context, rec history.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO requests
			(id, channel, chat_id, sender_id, url, outcome, detail, digest, bytes, started_at, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Channel, rec.ChatID, rec.SenderID, rec.URL, rec.Outcome,
		rec.Detail, rec.Digest, rec.Bytes, rec.StartedAt.UnixNano(), int64(rec.Duration),
	)
	if err != nil {
		return fmt.Errorf("sqlite: append request: %w", err)
	}
	return nil
}

// Recent implements history.Store.
func (s *Store) Recent(ctx context.Context, n int) ([]history.Record, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, channel, chat_id, sender_id, url, outcome, detail, digest, bytes, started_at, duration_ns
		FROM requests
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("sqlite: recent requests: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []history.Record
	for rows.Next() {
		var (
			rec      history.Record
			started  int64
			duration int64
		)
		if err := rows.Scan(&rec.ID, &rec.Channel, &rec.ChatID, &rec.SenderID, &rec.URL,
			&rec.Outcome, &rec.Detail, &rec.Digest, &rec.Bytes, &started, &duration); err != nil {
			return nil, fmt.Errorf("sqlite: scan request: %w", err)
		}
		rec.StartedAt = time.Unix(0, started)
		rec.Duration = time.Duration(duration)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: recent requests rows: %w", err)
	}
	return out, nil
}

// Prune implements history.Store.
func (s *Store) Prune(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM requests WHERE started_at < ?", before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune requests: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune rows affected: %w", err)
	}
	return int(n), nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

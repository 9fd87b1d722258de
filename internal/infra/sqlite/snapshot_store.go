package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pubquiz-service/internal/domain"

	_ "modernc.org/sqlite"
)

// SnapshotStore keeps session snapshots in a local SQLite file, for single
// host deployments without Redis or Postgres.
type SnapshotStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway store.
func Open(path string) (*SnapshotStore, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	if path == ":memory:" {
		dsn = path
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &SnapshotStore{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

func (s *SnapshotStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS session_snapshots (
		key TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	)`)
	return err
}

func (s *SnapshotStore) Save(ctx context.Context, key string, snap domain.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_snapshots (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, string(raw), s.now().UTC())
	return err
}

func (s *SnapshotStore) Load(ctx context.Context, key string) (domain.Snapshot, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM session_snapshots WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return domain.Snapshot{}, err
	}
	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return snap, nil
}

func (s *SnapshotStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_snapshots WHERE key = ?`, key)
	return err
}

// Prune removes snapshots not updated since before.
func (s *SnapshotStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM session_snapshots WHERE updated_at < ?`, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

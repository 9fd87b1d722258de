package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"pubquiz-service/internal/domain"
)

type snapshotRow struct {
	bun.BaseModel `bun:"table:session_snapshots"`

	Key       string           `bun:"key,pk"`
	Data      *domain.Snapshot `bun:"data,type:jsonb,notnull"`
	UpdatedAt time.Time        `bun:"updated_at,notnull"`
}

// SnapshotStore persists session snapshots in the session_snapshots table.
type SnapshotStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewSnapshotStore(db *bun.DB) *SnapshotStore {
	return &SnapshotStore{db: db, now: time.Now}
}

func (s *SnapshotStore) Save(ctx context.Context, key string, snap domain.Snapshot) error {
	row := &snapshotRow{Key: key, Data: &snap, UpdatedAt: s.now().UTC()}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (key) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *SnapshotStore) Load(ctx context.Context, key string) (domain.Snapshot, error) {
	row := new(snapshotRow)
	err := s.db.NewSelect().Model(row).Where("key = ?", key).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return domain.Snapshot{}, err
	}
	if row.Data == nil {
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	return *row.Data, nil
}

func (s *SnapshotStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.NewDelete().Model((*snapshotRow)(nil)).Where("key = ?", key).Exec(ctx)
	return err
}

// Prune removes snapshots not updated since before.
func (s *SnapshotStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.NewDelete().Model((*snapshotRow)(nil)).Where("updated_at < ?", before).Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

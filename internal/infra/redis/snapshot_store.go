package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"pubquiz-service/internal/domain"
)

// SnapshotStore keeps session snapshots as JSON strings under their snapshot
// key. A zero ttl keeps them forever.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

func (s *SnapshotStore) Save(ctx context.Context, key string, snap domain.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, raw, s.ttl).Err()
}

func (s *SnapshotStore) Load(ctx context.Context, key string) (domain.Snapshot, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return domain.Snapshot{}, err
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.Snapshot{}, err
	}
	return snap, nil
}

func (s *SnapshotStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

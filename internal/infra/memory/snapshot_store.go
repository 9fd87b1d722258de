package memory

import (
	"context"
	"encoding/json"
	"sync"

	"pubquiz-service/internal/domain"
)

// SnapshotStore keeps snapshots as JSON in a map, so a restore never
// shares memory with the session that saved it.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{data: make(map[string][]byte)}
}

func (s *SnapshotStore) Save(_ context.Context, key string, snap domain.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[key] = raw
	s.mu.Unlock()
	return nil
}

func (s *SnapshotStore) Load(_ context.Context, key string) (domain.Snapshot, error) {
	s.mu.RLock()
	raw, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.Snapshot{}, err
	}
	return snap, nil
}

func (s *SnapshotStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

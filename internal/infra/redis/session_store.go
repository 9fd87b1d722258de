package redis

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"pubquiz-service/internal/app"
)

// SessionStore is a Redis-aware implementation of SessionRepository.
// Notes:
//   - Sessions live in a local map so the in-process broadcast keeps working.
//   - Redis marks room liveness, which lets other instances see which room
//     codes are taken.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(room string, create func() *app.Session) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[room]; ok {
		return session
	}
	session := create()
	s.sessions[room] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(room), "1", s.ttl).Err()
	return session
}

func (s *SessionStore) Get(room string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[room]
	return session, ok
}

func (s *SessionStore) DeleteIfEmpty(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[room]
	if !ok {
		return
	}
	if session.IsEmpty() {
		delete(s.sessions, room)
		_ = s.client.Del(context.Background(), s.key(room)).Err()
	}
}

// Rooms returns the room codes held by this instance, sorted.
func (s *SessionStore) Rooms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make([]string, 0, len(s.sessions))
	for room := range s.sessions {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

// Live reports whether any instance holds the room open.
func (s *SessionStore) Live(ctx context.Context, room string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(room)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SessionStore) key(room string) string {
	return "quiz:session:" + room
}

package memory

import (
	"sort"
	"sync"

	"pubquiz-service/internal/app"
)

// SessionStore keeps live sessions in process, keyed by room code.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
	}
}

// GetOrCreate returns the room's session, calling create at most once per room.
func (s *SessionStore) GetOrCreate(room string, create func() *app.Session) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[room]; ok {
		return existing
	}
	created := create()
	s.sessions[room] = created
	return created
}

func (s *SessionStore) Get(room string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found, ok := s.sessions[room]
	return found, ok
}

// DeleteIfEmpty drops the room only when no client is attached.
func (s *SessionStore) DeleteIfEmpty(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if found, ok := s.sessions[room]; ok && found.IsEmpty() {
		delete(s.sessions, room)
	}
}

// Rooms returns the open room codes in sorted order.
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

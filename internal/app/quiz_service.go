package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/sirupsen/logrus"

	"pubquiz-service/internal/domain"
	"pubquiz-service/internal/quizspec"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis-marked, etc).
type SessionRepository interface {
	GetOrCreate(room string, create func() *Session) *Session
	Get(room string) (*Session, bool)
	DeleteIfEmpty(room string)
	Rooms() []string
}

// roomLiveness is implemented by stores shared between instances; a code
// held open elsewhere is not handed out again.
type roomLiveness interface {
	Live(ctx context.Context, room string) (bool, error)
}

// QuizRepository loads validated quiz definitions by id.
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (*domain.QuizSpec, error)
}

// SnapshotStore persists the restartable subset of a session.
// Load returns domain.ErrSnapshotNotFound when nothing is stored under key.
type SnapshotStore interface {
	Save(ctx context.Context, key string, snap domain.Snapshot) error
	Load(ctx context.Context, key string) (domain.Snapshot, error)
	Delete(ctx context.Context, key string) error
}

const roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewRoomCode returns a random four-character room code.
func NewRoomCode() string {
	b := make([]byte, 4)
	for i := range b {
		b[i] = roomCodeAlphabet[rand.Intn(len(roomCodeAlphabet))]
	}
	return string(b)
}

// QuizService routes host and player commands to per-room sessions and
// checkpoints them.
type QuizService struct {
	sessions    SessionRepository
	quizzes     QuizRepository
	snapshots   SnapshotStore
	validator   quizspec.Validator
	log         logrus.FieldLogger
	sessionOpts []SessionOption
	roomCode    func() string
}

// ServiceOption customizes a QuizService.
type ServiceOption func(*QuizService)

// WithSnapshotStore enables checkpointing. Without it sessions live only in memory.
func WithSnapshotStore(store SnapshotStore) ServiceOption {
	return func(s *QuizService) { s.snapshots = store }
}

func WithValidator(v quizspec.Validator) ServiceOption {
	return func(s *QuizService) { s.validator = v }
}

func WithLogger(log logrus.FieldLogger) ServiceOption {
	return func(s *QuizService) { s.log = log }
}

// WithSessionOptions is applied to every session the service creates.
func WithSessionOptions(opts ...SessionOption) ServiceOption {
	return func(s *QuizService) { s.sessionOpts = append(s.sessionOpts, opts...) }
}

// WithRoomCodes replaces the room code generator.
func WithRoomCodes(gen func() string) ServiceOption {
	return func(s *QuizService) { s.roomCode = gen }
}

func NewQuizService(store SessionRepository, quizzes QuizRepository, opts ...ServiceOption) *QuizService {
	s := &QuizService{
		sessions: store,
		quizzes:  quizzes,
		log:      logrus.StandardLogger(),
		roomCode: NewRoomCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeRoom(room string) string {
	return strings.ToUpper(strings.TrimSpace(room))
}

// CreateRoom opens a session under a fresh room code.
func (s *QuizService) CreateRoom(ctx context.Context) (domain.View, error) {
	for attempt := 0; attempt < 16; attempt++ {
		code := s.roomCode()
		if _, taken := s.sessions.Get(code); taken {
			continue
		}
		if lv, ok := s.sessions.(roomLiveness); ok {
			if live, err := lv.Live(ctx, code); err == nil && live {
				continue
			}
		}
		session, err := s.Open(ctx, code)
		if err != nil {
			return domain.View{}, err
		}
		s.log.WithField("room", code).Info("room created")
		return session.View(), nil
	}
	return domain.View{}, fmt.Errorf("could not allocate a free room code")
}

// Open returns the room's live session, restoring it from its snapshot
// when it is not in memory.
func (s *QuizService) Open(ctx context.Context, room string) (*Session, error) {
	room = normalizeRoom(room)
	if room == "" {
		return nil, domain.ErrSessionNotFound
	}
	if session, ok := s.sessions.Get(room); ok {
		return session, nil
	}

	var (
		snap     domain.Snapshot
		restored bool
	)
	if s.snapshots != nil {
		loaded, err := s.snapshots.Load(ctx, domain.SnapshotKey(room))
		switch {
		case err == nil:
			snap, restored = loaded, true
		case errors.Is(err, domain.ErrSnapshotNotFound):
		default:
			s.log.WithError(err).WithField("room", room).Warn("snapshot restore failed; starting fresh")
		}
	}

	return s.sessions.GetOrCreate(room, func() *Session {
		session := NewSession(room, s.sessionOpts...)
		if restored {
			session.Restore(snap)
			s.log.WithField("room", room).Info("session restored from snapshot")
		}
		return session
	}), nil
}

// Join attaches a client to a room, opening it if needed.
func (s *QuizService) Join(ctx context.Context, room string) (domain.View, error) {
	session, err := s.Open(ctx, room)
	if err != nil {
		return domain.View{}, err
	}
	session.attach()
	return session.View(), nil
}

// Leave detaches a client. The last client out checkpoints and drops the session.
func (s *QuizService) Leave(ctx context.Context, room string) {
	room = normalizeRoom(room)
	session, ok := s.sessions.Get(room)
	if !ok {
		return
	}
	session.detach()
	if session.IsEmpty() {
		s.checkpoint(ctx, session)
		s.sessions.DeleteIfEmpty(room)
	}
}

// Rooms lists the room codes open on this instance.
func (s *QuizService) Rooms() []string {
	return s.sessions.Rooms()
}

// View returns a live room's current view.
func (s *QuizService) View(_ context.Context, room string) (domain.View, error) {
	session, ok := s.sessions.Get(normalizeRoom(room))
	if !ok {
		return domain.View{}, domain.ErrSessionNotFound
	}
	return session.View(), nil
}

// Subscribe returns a channel of views for a room, starting with the current one.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, room string) (<-chan domain.View, func(), error) {
	session, ok := s.sessions.Get(normalizeRoom(room))
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// LoadQuiz installs a quiz from the repository.
func (s *QuizService) LoadQuiz(ctx context.Context, room, quizID string) (domain.View, error) {
	session, ok := s.sessions.Get(normalizeRoom(room))
	if !ok {
		return domain.View{}, domain.ErrSessionNotFound
	}
	spec, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return session.View(), err
	}
	v := session.Load(spec)
	s.checkpoint(ctx, session)
	return v, nil
}

// LoadDocument validates a raw document and installs it. Diagnostics are
// returned alongside a *quizspec.ValidationError when it is rejected.
func (s *QuizService) LoadDocument(ctx context.Context, room, document string) (domain.View, []domain.Diagnostic, error) {
	session, ok := s.sessions.Get(normalizeRoom(room))
	if !ok {
		return domain.View{}, nil, domain.ErrSessionNotFound
	}
	res := s.validator.Validate(document)
	if !res.Valid {
		return session.View(), res.Errors, res.Err()
	}
	v := session.Load(res.Spec)
	s.checkpoint(ctx, session)
	return v, nil, nil
}

// Dispatch applies one command on behalf of actor. It is the only path by
// which transports mutate sessions.
func (s *QuizService) Dispatch(ctx context.Context, room string, actor domain.Actor, cmd domain.Command) (domain.View, bool, error) {
	session, ok := s.sessions.Get(normalizeRoom(room))
	if !ok {
		return domain.View{}, false, domain.ErrSessionNotFound
	}
	cmd, err := actor.Authorize(cmd)
	if err != nil {
		return session.View(), false, err
	}

	switch cmd.Type {
	case domain.CmdLoadQuiz:
		v, err := s.LoadQuiz(ctx, room, cmd.QuizID)
		return v, err == nil, err
	case domain.CmdLoadDocument:
		doc := cmd.Document
		if cmd.ShareToken != "" {
			if doc, err = quizspec.DecodeShareToken(cmd.ShareToken); err != nil {
				return session.View(), false, err
			}
		}
		v, _, err := s.LoadDocument(ctx, room, doc)
		return v, err == nil, err
	}

	v, accepted, err := session.Apply(cmd)
	if err != nil {
		return v, false, err
	}
	if accepted && cmd.Type.Persistent() {
		s.checkpoint(ctx, session)
	}
	return v, accepted, nil
}

// Checkpoint saves a live room's snapshot now.
func (s *QuizService) Checkpoint(ctx context.Context, room string) error {
	session, ok := s.sessions.Get(normalizeRoom(room))
	if !ok {
		return domain.ErrSessionNotFound
	}
	if s.snapshots == nil {
		return nil
	}
	return s.snapshots.Save(ctx, domain.SnapshotKey(session.Room()), session.Snapshot())
}

func (s *QuizService) checkpoint(ctx context.Context, session *Session) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Save(ctx, domain.SnapshotKey(session.Room()), session.Snapshot()); err != nil {
		s.log.WithError(err).WithField("room", session.Room()).Warn("snapshot checkpoint failed")
	}
}

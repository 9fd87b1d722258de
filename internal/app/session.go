package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"pubquiz-service/internal/domain"
	"pubquiz-service/internal/quizspec"
	"pubquiz-service/internal/scoring"
)

// Session is one room's quiz run. All mutations go through its lock, so
// commands apply in the order they arrive.
type Session struct {
	room   string
	now    func() time.Time
	newID  func() string
	policy scoring.Policy

	mu          sync.RWMutex
	state       domain.State
	clients     int
	subscribers map[chan domain.View]struct{}
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithClock replaces time.Now, for deterministic timers in tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithIDGenerator replaces the team id generator.
func WithIDGenerator(newID func() string) SessionOption {
	return func(s *Session) { s.newID = newID }
}

// WithPolicy sets the scoring constants.
func WithPolicy(p scoring.Policy) SessionOption {
	return func(s *Session) { s.policy = p }
}

// NewSession returns an empty session for room.
func NewSession(room string, opts ...SessionOption) *Session {
	s := &Session{
		room:        room,
		now:         time.Now,
		newID:       func() string { return "team_" + uuid.NewString() },
		policy:      scoring.DefaultPolicy(),
		state:       domain.NewState(),
		subscribers: make(map[chan domain.View]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Room returns the session's room code.
func (s *Session) Room() string {
	return s.room
}

// View returns the current derived view.
func (s *Session) View() domain.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewLocked()
}

// State returns a copy of the current state.
func (s *Session) State() domain.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

func (s *Session) mutate(fn func(st *domain.State) bool) (domain.View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	accepted := fn(&s.state)
	if accepted {
		return s.broadcastLocked(), true
	}
	return s.viewLocked(), false
}

// Load installs spec and rewinds to its first question in the idle phase.
// Teams, scores and settings are kept. A spec without questions finishes
// immediately.
func (s *Session) Load(spec *domain.QuizSpec) domain.View {
	v, _ := s.mutate(func(st *domain.State) bool { return load(st, spec) })
	return v
}

// Reset discards everything, including the loaded quiz.
func (s *Session) Reset() domain.View {
	v, _ := s.mutate(resetSession)
	return v
}

func (s *Session) Start() (domain.View, bool) {
	return s.mutate(func(st *domain.State) bool {
		return st.Phase == domain.PhaseIdle && setPhase(st, domain.PhaseShowing)
	})
}

func (s *Session) Reveal() (domain.View, bool) {
	return s.mutate(func(st *domain.State) bool {
		return st.Phase == domain.PhaseShowing && setPhase(st, domain.PhaseRevealed)
	})
}

// ResumeShowing takes a revealed question back to showing.
func (s *Session) ResumeShowing() (domain.View, bool) {
	return s.mutate(func(st *domain.State) bool {
		return st.Phase == domain.PhaseRevealed && setPhase(st, domain.PhaseShowing)
	})
}

// Finish ends the quiz early from showing or revealed.
func (s *Session) Finish() (domain.View, bool) {
	return s.SetPhase(domain.PhaseFinished)
}

// SetPhase applies one of the allowed manual phase changes.
func (s *Session) SetPhase(p domain.Phase) (domain.View, bool) {
	return s.mutate(func(st *domain.State) bool { return setPhase(st, p) })
}

func (s *Session) Advance() (domain.View, bool) {
	return s.mutate(advance)
}

func (s *Session) Retreat() (domain.View, bool) {
	return s.mutate(retreat)
}

func (s *Session) JumpTo(round, question int) (domain.View, bool) {
	return s.mutate(func(st *domain.State) bool {
		return jumpTo(st, domain.Position{Round: round, Question: question})
	})
}

// ResetRound clears buzz and locks for a re-do of the current question.
func (s *Session) ResetRound() (domain.View, bool) {
	return s.mutate(resetRound)
}

func (s *Session) StartTimer() (domain.View, bool) {
	return s.mutate(func(st *domain.State) bool { return startTimer(st, s.now()) })
}

func (s *Session) StopTimer() (domain.View, bool) {
	return s.mutate(stopTimer)
}

// AddTeam creates a team with zero score and streak and returns its id.
func (s *Session) AddTeam(name, color string) (string, domain.View, error) {
	id := s.newID()
	var err error
	v, _ := s.mutate(func(st *domain.State) bool {
		err = addTeam(st, id, name, color)
		return err == nil
	})
	if err != nil {
		return "", v, err
	}
	return id, v, nil
}

// RemoveTeam deletes a team and its per-team entries. Absent ids are ignored.
func (s *Session) RemoveTeam(id string) (domain.View, bool) {
	return s.mutate(func(st *domain.State) bool { return removeTeam(st, id) })
}

func (s *Session) UpdateTeam(id, name, color string) (domain.View, bool, error) {
	var err error
	v, ok := s.mutate(func(st *domain.State) bool {
		var changed bool
		changed, err = updateTeam(st, id, name, color)
		return changed
	})
	return v, ok, err
}

// SetTeamScore overwrites a team's score.
func (s *Session) SetTeamScore(id string, score int) (domain.View, bool) {
	return s.mutate(func(st *domain.State) bool { return setTeamScore(st, id, score) })
}

// AddStreakBonus extends a team's streak by one. It awards no points.
func (s *Session) AddStreakBonus(id string) (domain.View, bool) {
	return s.mutate(func(st *domain.State) bool { return addStreakBonus(st, id) })
}

func (s *Session) ResetStreak(id string) (domain.View, bool) {
	return s.mutate(func(st *domain.State) bool { return resetStreak(st, id) })
}

// ScoreTeam judges a team's answer to the current question.
func (s *Session) ScoreTeam(id string, correct bool) (domain.View, bool) {
	return s.mutate(func(st *domain.State) bool { return scoreTeam(st, s.policy, id, correct) })
}

// ScoreLocked judges every locked answer against the correct answer.
func (s *Session) ScoreLocked() (domain.View, bool) {
	return s.mutate(func(st *domain.State) bool { return scoreLocked(st, s.policy) })
}

// BuzzIn records the first team to buzz while a question is showing.
func (s *Session) BuzzIn(id string) (domain.View, bool) {
	return s.mutate(func(st *domain.State) bool { return buzzIn(st, id) })
}

// LockAnswer stores a team's answer until the question is revealed.
func (s *Session) LockAnswer(id string, answer domain.Answer) (domain.View, bool) {
	return s.mutate(func(st *domain.State) bool { return lockAnswer(st, id, answer) })
}

// ToggleSetting flips a boolean setting.
func (s *Session) ToggleSetting(name domain.Setting) (domain.View, bool, error) {
	var err error
	v, ok := s.mutate(func(st *domain.State) bool {
		var changed bool
		changed, err = st.Settings.Toggle(name)
		return changed
	})
	return v, ok, err
}

func (s *Session) SetSetting(name domain.Setting, value any) (domain.View, bool, error) {
	var err error
	v, ok := s.mutate(func(st *domain.State) bool {
		next := st.Settings
		if err = next.Set(name, value); err != nil {
			return false
		}
		st.Settings = next
		return true
	})
	return v, ok, err
}

// Snapshot returns the restartable subset of the state.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Snapshot()
}

// Restore replaces the state with a saved snapshot. Transient state starts
// from defaults and the quiz, if any, is rewound to its first question.
func (s *Session) Restore(snap domain.Snapshot) domain.View {
	snap = snap.Normalize()
	v, _ := s.mutate(func(st *domain.State) bool {
		*st = domain.NewState()
		st.Teams = snap.Teams
		st.Scores = snap.Scores
		st.Streaks = snap.Streaks
		st.Settings = snap.Settings
		if snap.Quiz != nil {
			load(st, snap.Quiz)
		}
		return true
	})
	return v
}

// Apply dispatches a wire command. Quiz loading is resolved by QuizService
// and is not handled here. The bool reports whether the command changed
// state; errors are reserved for malformed commands.
func (s *Session) Apply(cmd domain.Command) (domain.View, bool, error) {
	switch cmd.Type {
	case domain.CmdReset:
		return s.Reset(), true, nil
	case domain.CmdStart:
		v, ok := s.Start()
		return v, ok, nil
	case domain.CmdReveal:
		v, ok := s.Reveal()
		return v, ok, nil
	case domain.CmdResume:
		v, ok := s.ResumeShowing()
		return v, ok, nil
	case domain.CmdFinish:
		v, ok := s.Finish()
		return v, ok, nil
	case domain.CmdSetPhase:
		if !cmd.Phase.Valid() {
			return s.View(), false, fmt.Errorf("invalid phase %q", cmd.Phase)
		}
		v, ok := s.SetPhase(cmd.Phase)
		return v, ok, nil
	case domain.CmdAdvance:
		v, ok := s.Advance()
		return v, ok, nil
	case domain.CmdRetreat:
		v, ok := s.Retreat()
		return v, ok, nil
	case domain.CmdJump:
		v, ok := s.JumpTo(cmd.Round, cmd.Question)
		return v, ok, nil
	case domain.CmdResetRound:
		v, ok := s.ResetRound()
		return v, ok, nil
	case domain.CmdStartTimer:
		v, ok := s.StartTimer()
		return v, ok, nil
	case domain.CmdStopTimer:
		v, ok := s.StopTimer()
		return v, ok, nil
	case domain.CmdAddTeam:
		_, v, err := s.AddTeam(cmd.Name, cmd.Color)
		return v, err == nil, err
	case domain.CmdRemoveTeam:
		v, ok := s.RemoveTeam(cmd.TeamID)
		return v, ok, nil
	case domain.CmdUpdateTeam:
		return s.UpdateTeam(cmd.TeamID, cmd.Name, cmd.Color)
	case domain.CmdSetScore:
		v, ok := s.SetTeamScore(cmd.TeamID, cmd.Score)
		return v, ok, nil
	case domain.CmdAddStreak:
		v, ok := s.AddStreakBonus(cmd.TeamID)
		return v, ok, nil
	case domain.CmdResetStreak:
		v, ok := s.ResetStreak(cmd.TeamID)
		return v, ok, nil
	case domain.CmdScoreTeam:
		v, ok := s.ScoreTeam(cmd.TeamID, cmd.Correct)
		return v, ok, nil
	case domain.CmdScoreLocked:
		v, ok := s.ScoreLocked()
		return v, ok, nil
	case domain.CmdBuzz:
		v, ok := s.BuzzIn(cmd.TeamID)
		return v, ok, nil
	case domain.CmdLock:
		if cmd.Answer == nil {
			return s.View(), false, fmt.Errorf("lock requires an answer")
		}
		v, ok := s.LockAnswer(cmd.TeamID, *cmd.Answer)
		return v, ok, nil
	case domain.CmdToggle:
		return s.ToggleSetting(cmd.Setting)
	case domain.CmdSetSetting:
		return s.SetSetting(cmd.Setting, cmd.Value)
	}
	return s.View(), false, fmt.Errorf("%w: %q", domain.ErrUnknownCommand, cmd.Type)
}

func (s *Session) attach() {
	s.mu.Lock()
	s.clients++
	s.mu.Unlock()
}

func (s *Session) detach() {
	s.mu.Lock()
	if s.clients > 0 {
		s.clients--
	}
	s.mu.Unlock()
}

// IsEmpty reports whether no client is attached.
func (s *Session) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clients == 0
}

func (s *Session) subscribe() (<-chan domain.View, func()) {
	ch := make(chan domain.View, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	// ch is empty and buffered; sending under the lock keeps it ahead of any broadcast
	ch <- s.viewLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() domain.View {
	v := s.viewLocked()
	for ch := range s.subscribers {
		select {
		case ch <- v:
		default:
			// Slow subscriber: drop its oldest view so the newest always lands.
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
	return v
}

func (s *Session) viewLocked() domain.View {
	now := s.now()
	st := s.state.Clone()
	v := domain.View{
		Room:             s.room,
		State:            st,
		QuestionCount:    st.Quiz.QuestionCount(),
		RemainingSeconds: st.RemainingSeconds(now),
		Standings:        st.Standings(),
		UpdatedAt:        now,
	}
	v.Round = st.CurrentRound()
	if q := st.CurrentQuestion(); q != nil {
		v.Question = q
		v.QuestionNumber = st.Quiz.Ordinal(domain.Position{Round: st.RoundIdx, Question: st.QuestionIdx})
		v.OptionOrder = quizspec.OptionOrder(*q)
	}
	return v
}

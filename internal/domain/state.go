package domain

import (
	"math"
	"sort"
	"time"
)

// Phase governs which commands a session accepts.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseShowing  Phase = "showing"
	PhaseRevealed Phase = "revealed"
	PhaseFinished Phase = "finished"
)

func (p Phase) Valid() bool {
	switch p {
	case PhaseIdle, PhaseShowing, PhaseRevealed, PhaseFinished:
		return true
	}
	return false
}

// State is the authoritative model of one quiz run.
// Quiz is shared between clones; QuizSpec values are never mutated after loading.
type State struct {
	Quiz          *QuizSpec         `json:"quizSpec"`
	Phase         Phase             `json:"phase"`
	RoundIdx      int               `json:"roundIdx"`
	QuestionIdx   int               `json:"questionIdx"`
	TimerStarted  *time.Time        `json:"timerStarted"`
	Teams         []Team            `json:"teams"`
	Scores        map[string]int    `json:"scores"`
	Streaks       map[string]int    `json:"streaks"`
	BuzzedBy      string            `json:"buzzedBy,omitempty"`
	LockedAnswers map[string]Answer `json:"lockedAnswers"`
	Settings      Settings          `json:"settings"`
}

// NewState returns the initial, quiz-less state.
func NewState() State {
	return State{
		Phase:         PhaseIdle,
		Teams:         []Team{},
		Scores:        make(map[string]int),
		Streaks:       make(map[string]int),
		LockedAnswers: make(map[string]Answer),
		Settings:      DefaultSettings(),
	}
}

// Clone returns a deep copy safe to hand to readers.
func (s State) Clone() State {
	out := s
	out.Teams = append([]Team(nil), s.Teams...)
	if out.Teams == nil {
		out.Teams = []Team{}
	}
	out.Scores = make(map[string]int, len(s.Scores))
	for k, v := range s.Scores {
		out.Scores[k] = v
	}
	out.Streaks = make(map[string]int, len(s.Streaks))
	for k, v := range s.Streaks {
		out.Streaks[k] = v
	}
	out.LockedAnswers = make(map[string]Answer, len(s.LockedAnswers))
	for k, v := range s.LockedAnswers {
		out.LockedAnswers[k] = v
	}
	if s.TimerStarted != nil {
		t := *s.TimerStarted
		out.TimerStarted = &t
	}
	return out
}

// CurrentRound returns the round at RoundIdx, or nil when no quiz is loaded.
func (s State) CurrentRound() *Round {
	if s.Quiz == nil || s.RoundIdx < 0 || s.RoundIdx >= len(s.Quiz.Rounds) {
		return nil
	}
	return &s.Quiz.Rounds[s.RoundIdx]
}

// CurrentQuestion returns the question at the current position, or nil.
func (s State) CurrentQuestion() *Question {
	r := s.CurrentRound()
	if r == nil || s.QuestionIdx < 0 || s.QuestionIdx >= len(r.Questions) {
		return nil
	}
	return &r.Questions[s.QuestionIdx]
}

// HasTeam reports whether id names a current team.
func (s State) HasTeam(id string) bool {
	for _, t := range s.Teams {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Score returns the team's score, 0 when absent.
func (s State) Score(teamID string) int {
	return s.Scores[teamID]
}

// RoundDuration returns the current round's countdown length.
func (s State) RoundDuration() time.Duration {
	r := s.CurrentRound()
	if r == nil || r.Duration <= 0 {
		return DefaultRoundDuration * time.Second
	}
	return time.Duration(r.Duration) * time.Second
}

// Remaining computes max(0, duration - (now - TimerStarted)). Without a running
// timer the full duration remains.
func (s State) Remaining(now time.Time) time.Duration {
	d := s.RoundDuration()
	if s.TimerStarted == nil {
		return d
	}
	left := d - now.Sub(*s.TimerStarted)
	if left < 0 {
		return 0
	}
	return left
}

// RemainingSeconds rounds Remaining up to whole seconds.
func (s State) RemainingSeconds(now time.Time) int {
	return int(math.Ceil(s.Remaining(now).Seconds()))
}

// TimeUp reports whether a running timer has reached zero.
func (s State) TimeUp(now time.Time) bool {
	return s.TimerStarted != nil && s.Remaining(now) == 0
}

// Standings orders teams by score descending; ties keep team insertion order.
func (s State) Standings() []Standing {
	out := make([]Standing, 0, len(s.Teams))
	for _, t := range s.Teams {
		out = append(out, Standing{
			TeamID: t.ID,
			Name:   t.Name,
			Color:  t.Color,
			Score:  s.Scores[t.ID],
			Streak: s.Streaks[t.ID],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

package app

import (
	"strconv"
	"strings"
	"time"

	"pubquiz-service/internal/domain"
	"pubquiz-service/internal/scoring"
)

// Transition functions mutate st in place and report whether the command
// applied. A false return means st is unchanged.

func load(st *domain.State, spec *domain.QuizSpec) bool {
	st.Quiz = spec
	clearQuestion(st)
	first, ok := spec.First()
	st.RoundIdx, st.QuestionIdx = first.Round, first.Question
	if ok {
		st.Phase = domain.PhaseIdle
	} else {
		st.Phase = domain.PhaseFinished
	}
	return true
}

func resetSession(st *domain.State) bool {
	*st = domain.NewState()
	return true
}

func clearQuestion(st *domain.State) {
	st.BuzzedBy = ""
	st.LockedAnswers = make(map[string]domain.Answer)
	st.TimerStarted = nil
}

func position(st *domain.State) domain.Position {
	return domain.Position{Round: st.RoundIdx, Question: st.QuestionIdx}
}

func moveTo(st *domain.State, p domain.Position) {
	st.RoundIdx, st.QuestionIdx = p.Round, p.Question
	st.Phase = domain.PhaseShowing
	clearQuestion(st)
}

func setPhase(st *domain.State, to domain.Phase) bool {
	if st.Quiz == nil {
		return false
	}
	from := st.Phase
	switch {
	case from == domain.PhaseIdle && to == domain.PhaseShowing,
		from == domain.PhaseShowing && to == domain.PhaseRevealed,
		from == domain.PhaseRevealed && to == domain.PhaseShowing:
		st.Phase = to
		return true
	case (from == domain.PhaseShowing || from == domain.PhaseRevealed) && to == domain.PhaseFinished:
		st.Phase = to
		st.TimerStarted = nil
		return true
	}
	return false
}

func advance(st *domain.State) bool {
	if st.Quiz == nil || st.Phase == domain.PhaseFinished {
		return false
	}
	if next, ok := st.Quiz.Next(position(st)); ok {
		moveTo(st, next)
		return true
	}
	st.Phase = domain.PhaseFinished
	st.TimerStarted = nil
	return true
}

func retreat(st *domain.State) bool {
	if st.Quiz == nil || st.Phase == domain.PhaseFinished {
		return false
	}
	prev, ok := st.Quiz.Prev(position(st))
	if !ok {
		return false
	}
	moveTo(st, prev)
	return true
}

func jumpTo(st *domain.State, p domain.Position) bool {
	if st.Quiz == nil || st.Phase == domain.PhaseFinished || !st.Quiz.Contains(p) {
		return false
	}
	moveTo(st, p)
	return true
}

func resetRound(st *domain.State) bool {
	if st.CurrentQuestion() == nil || st.Phase == domain.PhaseFinished {
		return false
	}
	clearQuestion(st)
	st.Phase = domain.PhaseShowing
	return true
}

func startTimer(st *domain.State, now time.Time) bool {
	if st.CurrentQuestion() == nil || st.Phase == domain.PhaseFinished {
		return false
	}
	st.TimerStarted = &now
	return true
}

func stopTimer(st *domain.State) bool {
	if st.TimerStarted == nil {
		return false
	}
	st.TimerStarted = nil
	return true
}

func addTeam(st *domain.State, id, name, color string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ErrEmptyTeamName
	}
	st.Teams = append(st.Teams, domain.Team{ID: id, Name: name, Color: color})
	st.Scores[id] = 0
	st.Streaks[id] = 0
	return nil
}

func removeTeam(st *domain.State, id string) bool {
	for i, t := range st.Teams {
		if t.ID != id {
			continue
		}
		st.Teams = append(st.Teams[:i:i], st.Teams[i+1:]...)
		delete(st.Scores, id)
		delete(st.Streaks, id)
		delete(st.LockedAnswers, id)
		if st.BuzzedBy == id {
			st.BuzzedBy = ""
		}
		return true
	}
	return false
}

func updateTeam(st *domain.State, id, name, color string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, domain.ErrEmptyTeamName
	}
	for i := range st.Teams {
		if st.Teams[i].ID == id {
			st.Teams[i].Name = name
			st.Teams[i].Color = color
			return true, nil
		}
	}
	return false, nil
}

func setTeamScore(st *domain.State, id string, score int) bool {
	if !st.HasTeam(id) {
		return false
	}
	st.Scores[id] = score
	return true
}

func addStreakBonus(st *domain.State, id string) bool {
	if !st.HasTeam(id) {
		return false
	}
	st.Streaks[id]++
	return true
}

func resetStreak(st *domain.State, id string) bool {
	if !st.HasTeam(id) {
		return false
	}
	st.Streaks[id] = 0
	return true
}

func buzzIn(st *domain.State, id string) bool {
	if st.Phase != domain.PhaseShowing || st.BuzzedBy != "" || !st.HasTeam(id) {
		return false
	}
	st.BuzzedBy = id
	return true
}

func lockAnswer(st *domain.State, id string, answer domain.Answer) bool {
	if st.CurrentQuestion() == nil || !st.HasTeam(id) {
		return false
	}
	if st.Phase == domain.PhaseRevealed || st.Phase == domain.PhaseFinished {
		return false
	}
	st.LockedAnswers[id] = answer
	return true
}

// scoreTeam judges one team's answer to the current question through the
// scoring policy, then extends or clears its streak.
func scoreTeam(st *domain.State, policy scoring.Policy, id string, correct bool) bool {
	q := st.CurrentQuestion()
	if q == nil || !st.HasTeam(id) {
		return false
	}
	if st.Phase != domain.PhaseShowing && st.Phase != domain.PhaseRevealed {
		return false
	}

	in := scoring.Input{
		Mode:               st.Settings.PointsMode,
		Correct:            correct,
		BasePoints:         q.Points,
		Streak:             st.Streaks[id],
		RoundIdx:           st.RoundIdx,
		NegativeEnabled:    st.Settings.NegativeEnabled,
		StreakBonusEnabled: st.Settings.StreakBonusEnabled,
	}
	if q.NegativePoints != nil {
		in.NegativePoints = *q.NegativePoints
	}
	if q.Type == domain.WagerFinal && st.Settings.WagerEnabled {
		wager := scoring.ClampWager(lockedWager(st.LockedAnswers[id]), st.Scores[id])
		in.Wager = &wager
	}

	st.Scores[id] += policy.Delta(in)
	if correct {
		st.Streaks[id]++
	} else {
		st.Streaks[id] = 0
	}
	return true
}

// lockedWager reads a wager amount from a locked answer. Text locks are
// accepted when they hold an integer.
func lockedWager(a domain.Answer) int {
	if n, ok := a.Index(); ok {
		return n
	}
	text, _ := a.Text()
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0
	}
	return n
}

// scoreLocked auto-judges every locked answer against the revealed correct
// answer. Wager questions are judged by the host instead.
func scoreLocked(st *domain.State, policy scoring.Policy) bool {
	q := st.CurrentQuestion()
	if q == nil || q.CorrectAnswer == nil || st.Phase != domain.PhaseRevealed {
		return false
	}
	if q.Type == domain.WagerFinal && st.Settings.WagerEnabled {
		return false
	}
	applied := false
	for _, t := range st.Teams {
		locked, ok := st.LockedAnswers[t.ID]
		if !ok {
			continue
		}
		if scoreTeam(st, policy, t.ID, q.CorrectAnswer.Matches(locked)) {
			applied = true
		}
	}
	return applied
}

package domain

import "time"

// View is the derived, read-only picture of a session handed to renderers
// after every transition.
type View struct {
	Room string `json:"room"`
	State
	Round            *Round     `json:"round,omitempty"`
	Question         *Question  `json:"question,omitempty"`
	QuestionNumber   int        `json:"questionNumber"`
	QuestionCount    int        `json:"questionCount"`
	OptionOrder      []int      `json:"optionOrder,omitempty"`
	RemainingSeconds int        `json:"remainingSeconds"`
	Standings        []Standing `json:"standings"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// AnswersVisible reports whether correct answers may be shown to players.
func (v View) AnswersVisible() bool {
	return v.Phase == PhaseRevealed || v.Phase == PhaseFinished
}

// ForPlayer returns the view as a team sees it: the quiz without answers or
// explanations, the current question's answer only once revealed, and no
// locked answer but the team's own. An empty teamID yields the public view.
func (v View) ForPlayer(teamID string) View {
	out := v
	out.State.Quiz = redactQuiz(v.State.Quiz)
	if out.State.Quiz != nil && v.Round != nil && v.RoundIdx < len(out.State.Quiz.Rounds) {
		r := out.State.Quiz.Rounds[v.RoundIdx]
		out.Round = &r
	}
	if v.Question != nil {
		q := *v.Question
		if !v.AnswersVisible() {
			q.CorrectAnswer = nil
			q.Explanation = ""
		}
		out.Question = &q
	}
	out.LockedAnswers = make(map[string]Answer, 1)
	if a, ok := v.LockedAnswers[teamID]; ok && teamID != "" {
		out.LockedAnswers[teamID] = a
	}
	return out
}

func redactQuiz(q *QuizSpec) *QuizSpec {
	if q == nil {
		return nil
	}
	out := *q
	out.Rounds = make([]Round, len(q.Rounds))
	for i, r := range q.Rounds {
		r.Questions = append([]Question(nil), r.Questions...)
		for j := range r.Questions {
			r.Questions[j].CorrectAnswer = nil
			r.Questions[j].Explanation = ""
		}
		out.Rounds[i] = r
	}
	return &out
}

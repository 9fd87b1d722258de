package domain

// Position addresses one question inside a quiz.
type Position struct {
	Round    int `json:"round"`
	Question int `json:"question"`
}

// Contains reports whether p addresses an existing question.
func (q *QuizSpec) Contains(p Position) bool {
	if q == nil || p.Round < 0 || p.Round >= len(q.Rounds) {
		return false
	}
	return p.Question >= 0 && p.Question < len(q.Rounds[p.Round].Questions)
}

// First returns the first question's position. Rounds without questions are
// skipped; ok is false when the quiz has no questions at all.
func (q *QuizSpec) First() (Position, bool) {
	if q == nil {
		return Position{}, false
	}
	for r := range q.Rounds {
		if len(q.Rounds[r].Questions) > 0 {
			return Position{Round: r}, true
		}
	}
	return Position{}, false
}

// Next returns the position after p, skipping empty rounds.
func (q *QuizSpec) Next(p Position) (Position, bool) {
	if !q.Contains(p) {
		return Position{}, false
	}
	if p.Question < len(q.Rounds[p.Round].Questions)-1 {
		return Position{Round: p.Round, Question: p.Question + 1}, true
	}
	for r := p.Round + 1; r < len(q.Rounds); r++ {
		if len(q.Rounds[r].Questions) > 0 {
			return Position{Round: r}, true
		}
	}
	return Position{}, false
}

// Prev returns the position before p, landing on the last question of the
// nearest earlier non-empty round when p is a round's first question.
func (q *QuizSpec) Prev(p Position) (Position, bool) {
	if !q.Contains(p) {
		return Position{}, false
	}
	if p.Question > 0 {
		return Position{Round: p.Round, Question: p.Question - 1}, true
	}
	for r := p.Round - 1; r >= 0; r-- {
		if n := len(q.Rounds[r].Questions); n > 0 {
			return Position{Round: r, Question: n - 1}, true
		}
	}
	return Position{}, false
}

// Ordinal returns the 1-based number of p across the whole quiz.
func (q *QuizSpec) Ordinal(p Position) int {
	if !q.Contains(p) {
		return 0
	}
	n := 0
	for r := 0; r < p.Round; r++ {
		n += len(q.Rounds[r].Questions)
	}
	return n + p.Question + 1
}

package domain

const (
	// DefaultRoundDuration is the countdown length in seconds when a round omits it.
	DefaultRoundDuration = 30
	// DefaultPoints is awarded for a correct answer when a question omits it.
	DefaultPoints = 10
)

// QuestionType is the closed set of question kinds a quiz may contain.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	Picture        QuestionType = "picture"
	Audio          QuestionType = "audio"
	Speed          QuestionType = "speed"
	WagerFinal     QuestionType = "wager_final"
)

// QuestionTypes lists every valid question type in declaration order.
var QuestionTypes = []QuestionType{MultipleChoice, Picture, Audio, Speed, WagerFinal}

// Valid reports whether t is one of QuestionTypes.
func (t QuestionType) Valid() bool {
	for _, known := range QuestionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// RendersOptions reports whether questions of this type present a list of options.
func (t QuestionType) RendersOptions() bool {
	switch t {
	case MultipleChoice, Picture, Audio, Speed:
		return true
	}
	return false
}

// Question is a single prompt within a round.
type Question struct {
	ID             string       `json:"id" yaml:"id"`
	Type           QuestionType `json:"type" yaml:"type"`
	Question       string       `json:"question" yaml:"question"`
	Options        []string     `json:"options,omitempty" yaml:"options,omitempty"`
	CorrectAnswer  *Answer      `json:"correctAnswer,omitempty" yaml:"correctAnswer,omitempty"`
	Explanation    string       `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	Image          string       `json:"image,omitempty" yaml:"image,omitempty"`
	Audio          string       `json:"audio,omitempty" yaml:"audio,omitempty"`
	Points         int          `json:"points" yaml:"points"`
	NegativePoints *int         `json:"negativePoints,omitempty" yaml:"negativePoints,omitempty"`
}

// Round is an ordered group of questions sharing a timer duration.
type Round struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	Duration  int        `json:"duration" yaml:"duration"` // seconds
	Questions []Question `json:"questions" yaml:"questions"`
}

// QuizSpec is a validated quiz definition. It is never mutated after loading.
type QuizSpec struct {
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Rounds      []Round `json:"rounds" yaml:"rounds"`
}

// QuestionCount returns the number of questions across all rounds.
func (q *QuizSpec) QuestionCount() int {
	if q == nil {
		return 0
	}
	total := 0
	for _, r := range q.Rounds {
		total += len(r.Questions)
	}
	return total
}

// Team is a scoring unit created by the host.
type Team struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Standing is one row of the derived scoreboard.
type Standing struct {
	Rank   int    `json:"rank"`
	TeamID string `json:"teamId"`
	Name   string `json:"name"`
	Color  string `json:"color,omitempty"`
	Score  int    `json:"score"`
	Streak int    `json:"streak"`
}

// Diagnostic is a validation problem with a 1-based source position.
type Diagnostic struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

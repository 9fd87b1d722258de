package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func quizWith(sizes ...int) *QuizSpec {
	q := &QuizSpec{Title: "Q"}
	for _, n := range sizes {
		q.Rounds = append(q.Rounds, Round{Questions: make([]Question, n)})
	}
	return q
}

func TestNavigation(t *testing.T) {
	q := quizWith(0, 2, 0, 0, 1)

	first, ok := q.First()
	require.True(t, ok)
	assert.Equal(t, Position{Round: 1}, first)

	next, ok := q.Next(first)
	require.True(t, ok)
	assert.Equal(t, Position{Round: 1, Question: 1}, next)

	next, ok = q.Next(next)
	require.True(t, ok)
	assert.Equal(t, Position{Round: 4}, next)
	assert.Equal(t, 3, q.Ordinal(next))

	_, ok = q.Next(next)
	assert.False(t, ok)

	prev, ok := q.Prev(next)
	require.True(t, ok)
	assert.Equal(t, Position{Round: 1, Question: 1}, prev)

	_, ok = q.Prev(first)
	assert.False(t, ok)

	assert.False(t, q.Contains(Position{Round: 0}))
	assert.Equal(t, 0, q.Ordinal(Position{Round: 9}))

	var none *QuizSpec
	_, ok = none.First()
	assert.False(t, ok)
	assert.Equal(t, 0, none.QuestionCount())
}

func TestRemaining(t *testing.T) {
	start := time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC)
	st := NewState()
	st.Quiz = &QuizSpec{Rounds: []Round{{Duration: 20, Questions: make([]Question, 1)}}}

	assert.Equal(t, 20*time.Second, st.Remaining(start))
	assert.False(t, st.TimeUp(start))

	st.TimerStarted = &start
	assert.Equal(t, 15*time.Second, st.Remaining(start.Add(5*time.Second)))
	assert.Equal(t, 15, st.RemainingSeconds(start.Add(5*time.Second)))
	assert.Equal(t, 15, st.RemainingSeconds(start.Add(5*time.Second+100*time.Millisecond)))
	assert.Equal(t, time.Duration(0), st.Remaining(start.Add(time.Hour)))
	assert.True(t, st.TimeUp(start.Add(20*time.Second)))

	st.Quiz.Rounds[0].Duration = 0
	assert.Equal(t, DefaultRoundDuration*time.Second, st.RoundDuration())
}

func TestCloneIsDeep(t *testing.T) {
	st := NewState()
	st.Teams = append(st.Teams, Team{ID: "a", Name: "A"})
	st.Scores["a"] = 1
	st.LockedAnswers["a"] = TextAnswer("x")
	now := time.Now()
	st.TimerStarted = &now

	c := st.Clone()
	c.Teams[0].Name = "changed"
	c.Scores["a"] = 99
	delete(c.LockedAnswers, "a")
	*c.TimerStarted = now.Add(time.Hour)

	assert.Equal(t, "A", st.Teams[0].Name)
	assert.Equal(t, 1, st.Scores["a"])
	assert.Contains(t, st.LockedAnswers, "a")
	assert.Equal(t, now, *st.TimerStarted)
}

func TestStandingsStableOnTies(t *testing.T) {
	st := NewState()
	for _, id := range []string{"a", "b", "c", "d"} {
		st.Teams = append(st.Teams, Team{ID: id, Name: id})
	}
	st.Scores = map[string]int{"a": 5, "b": 10, "c": 5, "d": 10}

	var order []string
	for _, s := range st.Standings() {
		order = append(order, s.TeamID)
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, order)
	assert.Equal(t, 4, st.Standings()[3].Rank)
}

func TestSnapshotNormalize(t *testing.T) {
	snap := Snapshot{
		Teams: []Team{{ID: "a"}, {ID: "b"}, {ID: "a"}, {ID: ""}},
		Scores: map[string]int{
			"a": 7, "ghost": 3,
		},
		Streaks:  map[string]int{"b": -1, "a": 2, "ghost": 4},
		Settings: Settings{PointsMode: "weird", SoundOn: true},
		Quiz:     &QuizSpec{Rounds: []Round{{ID: "r", Duration: -5}, {ID: "s", Duration: 40}}},
	}

	out := snap.Normalize()
	assert.Equal(t, SnapshotVersion, out.Version)
	assert.Len(t, out.Teams, 2)
	assert.Equal(t, map[string]int{"a": 7, "b": 0}, out.Scores)
	assert.Equal(t, map[string]int{"a": 2, "b": 0}, out.Streaks)
	assert.Equal(t, PointsStandard, out.PointsMode)
	assert.True(t, out.SoundOn)
	assert.Equal(t, DefaultRoundDuration, out.Quiz.Rounds[0].Duration)
	assert.Equal(t, 40, out.Quiz.Rounds[1].Duration)
	assert.Equal(t, -5, snap.Quiz.Rounds[0].Duration, "normalize must not mutate its input")
}

func TestSnapshotJSONIsFlat(t *testing.T) {
	st := NewState()
	st.Settings.WagerEnabled = true
	raw, err := json.Marshal(st.Snapshot())
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(raw, &flat))
	assert.Equal(t, true, flat["wagerEnabled"])
	assert.Equal(t, "standard", flat["pointsMode"])
	assert.Contains(t, flat, "quizSpec")
	assert.NotContains(t, flat, "phase")
	assert.NotContains(t, flat, "lockedAnswers")
	assert.Equal(t, "quiz-store:ABCD", SnapshotKey("ABCD"))
}

func TestSettings(t *testing.T) {
	s := DefaultSettings()

	changed, err := s.Toggle(SettingSound)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, s.SoundOn)

	changed, err = s.Toggle(SettingPointsMode)
	assert.NoError(t, err)
	assert.False(t, changed)

	_, err = s.Toggle("volume")
	assert.ErrorIs(t, err, ErrUnknownSetting)

	require.NoError(t, s.Set(SettingNegative, "true"))
	assert.True(t, s.NegativeEnabled)
	require.NoError(t, s.Set(SettingPointsMode, PointsProgressive))
	assert.Equal(t, PointsProgressive, s.PointsMode)

	assert.ErrorIs(t, s.Set(SettingNegative, 3), ErrInvalidSettingValue)
	assert.ErrorIs(t, s.Set(SettingLargeText, "maybe"), ErrInvalidSettingValue)
	assert.ErrorIs(t, s.Set(SettingPointsMode, "exponential"), ErrInvalidSettingValue)
	assert.ErrorIs(t, s.Set("volume", true), ErrUnknownSetting)
}

func TestAnswerEncoding(t *testing.T) {
	var a Answer
	require.NoError(t, json.Unmarshal([]byte(`2`), &a))
	i, ok := a.Index()
	assert.True(t, ok)
	assert.Equal(t, 2, i)

	require.NoError(t, json.Unmarshal([]byte(`" Rome "`), &a))
	text, ok := a.Text()
	assert.True(t, ok)
	assert.Equal(t, " Rome ", text)
	assert.True(t, TextAnswer("rome").Matches(a))
	assert.False(t, IndexAnswer(0).Matches(TextAnswer("0")))

	assert.Error(t, json.Unmarshal([]byte(`true`), &a))

	raw, err := json.Marshal(map[string]Answer{"x": IndexAnswer(3), "y": TextAnswer("753 BC")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":3,"y":"753 BC"}`, string(raw))

	var fromYAML struct {
		A Answer `yaml:"a"`
		B Answer `yaml:"b"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: 1\nb: \"1\"\n"), &fromYAML))
	_, isIndex := fromYAML.A.Index()
	_, isText := fromYAML.B.Text()
	assert.True(t, isIndex)
	assert.True(t, isText)
	assert.Error(t, yaml.Unmarshal([]byte("a: 1.5\n"), &fromYAML))
}

func TestAuthorize(t *testing.T) {
	host := Actor{Role: RoleHost}
	cmd, err := host.Authorize(Command{Type: CmdAdvance})
	require.NoError(t, err)
	assert.Equal(t, CmdAdvance, cmd.Type)

	player := Actor{Role: RolePlayer, TeamID: "t1"}
	cmd, err = player.Authorize(Command{Type: CmdLock, TeamID: "t2"})
	require.NoError(t, err)
	assert.Equal(t, "t1", cmd.TeamID)

	_, err = player.Authorize(Command{Type: CmdSetScore})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = Actor{Role: RolePlayer}.Authorize(Command{Type: CmdBuzz})
	assert.ErrorIs(t, err, ErrTeamNotFound)

	assert.True(t, CmdScoreTeam.Persistent())
	assert.False(t, CmdAdvance.Persistent())
}

func TestForPlayerHidesAnswersUntilRevealed(t *testing.T) {
	answer := IndexAnswer(1)
	quiz := &QuizSpec{Rounds: []Round{{ID: "r", Questions: []Question{
		{ID: "q", Options: []string{"a", "b"}, CorrectAnswer: &answer, Explanation: "because"},
	}}}}
	st := NewState()
	st.Quiz = quiz
	st.Phase = PhaseShowing
	st.LockedAnswers["T1"] = IndexAnswer(0)
	st.LockedAnswers["T2"] = IndexAnswer(1)
	v := View{State: st, Round: &quiz.Rounds[0], Question: &quiz.Rounds[0].Questions[0]}

	p := v.ForPlayer("T1")
	assert.Nil(t, p.Question.CorrectAnswer)
	assert.Empty(t, p.Question.Explanation)
	assert.Nil(t, p.Round.Questions[0].CorrectAnswer)
	assert.Nil(t, p.Quiz.Rounds[0].Questions[0].CorrectAnswer)
	assert.Equal(t, map[string]Answer{"T1": IndexAnswer(0)}, p.LockedAnswers)
	assert.Empty(t, v.ForPlayer("").LockedAnswers)

	// the source view is untouched
	require.NotNil(t, quiz.Rounds[0].Questions[0].CorrectAnswer)
	assert.Len(t, v.LockedAnswers, 2)

	v.Phase = PhaseRevealed
	p = v.ForPlayer("T1")
	require.NotNil(t, p.Question.CorrectAnswer)
	assert.Equal(t, "because", p.Question.Explanation)
	assert.Nil(t, p.Quiz.Rounds[0].Questions[0].CorrectAnswer)
}

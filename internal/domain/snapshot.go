package domain

// SnapshotVersion is written into every new snapshot. Snapshots without a
// version predate it and are normalized on restore.
const SnapshotVersion = 1

// SnapshotStoreName prefixes every snapshot key.
const SnapshotStoreName = "quiz-store"

// SnapshotKey returns the store key for a room's snapshot.
func SnapshotKey(room string) string {
	return SnapshotStoreName + ":" + room
}

// Snapshot is the restartable subset of State. Timer, phase, position,
// buzz and lock state are session-local and never persisted.
type Snapshot struct {
	Version int            `json:"version"`
	Quiz    *QuizSpec      `json:"quizSpec"`
	Teams   []Team         `json:"teams"`
	Scores  map[string]int `json:"scores"`
	Streaks map[string]int `json:"streaks"`
	Settings
}

// Snapshot extracts the restartable subset of s.
func (s State) Snapshot() Snapshot {
	c := s.Clone()
	return Snapshot{
		Version:  SnapshotVersion,
		Quiz:     c.Quiz,
		Teams:    c.Teams,
		Scores:   c.Scores,
		Streaks:  c.Streaks,
		Settings: c.Settings,
	}
}

// Normalize fills defaults for fields that are missing or invalid in older
// snapshots and drops per-team entries for teams that no longer exist.
func (s Snapshot) Normalize() Snapshot {
	out := Snapshot{
		Version:  SnapshotVersion,
		Quiz:     s.Quiz,
		Teams:    make([]Team, 0, len(s.Teams)),
		Scores:   make(map[string]int, len(s.Teams)),
		Streaks:  make(map[string]int, len(s.Teams)),
		Settings: s.Settings,
	}
	if !out.PointsMode.Valid() {
		out.PointsMode = PointsStandard
	}
	seen := make(map[string]bool, len(s.Teams))
	for _, t := range s.Teams {
		if t.ID == "" || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		out.Teams = append(out.Teams, t)
		out.Scores[t.ID] = s.Scores[t.ID]
		if streak := s.Streaks[t.ID]; streak > 0 {
			out.Streaks[t.ID] = streak
		} else {
			out.Streaks[t.ID] = 0
		}
	}
	if s.Quiz != nil {
		out.Quiz = withRoundDefaults(s.Quiz)
	}
	return out
}

// withRoundDefaults returns q with zero round durations replaced by the
// default. q itself is left untouched.
func withRoundDefaults(q *QuizSpec) *QuizSpec {
	needs := false
	for _, r := range q.Rounds {
		if r.Duration <= 0 {
			needs = true
			break
		}
	}
	if !needs {
		return q
	}
	cp := *q
	cp.Rounds = append([]Round(nil), q.Rounds...)
	for i := range cp.Rounds {
		if cp.Rounds[i].Duration <= 0 {
			cp.Rounds[i].Duration = DefaultRoundDuration
		}
	}
	return &cp
}

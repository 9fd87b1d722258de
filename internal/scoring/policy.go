// Package scoring computes point deltas for judged answers. It holds no
// state; callers apply the returned delta and update streaks themselves.
package scoring

import (
	"math"

	"pubquiz-service/internal/domain"
)

// Policy carries the tunable constants of the scoring rules.
type Policy struct {
	// ProgressiveStep is added to the base multiplier for every round after
	// the first in progressive mode: round r scores base*(1+r*step).
	ProgressiveStep float64
	// StreakThreshold is the streak length a team must already hold for a
	// correct answer to earn StreakBonus.
	StreakThreshold int
	StreakBonus     int
}

// DefaultPolicy is used when configuration leaves the constants unset.
func DefaultPolicy() Policy {
	return Policy{ProgressiveStep: 0.5, StreakThreshold: 2, StreakBonus: 5}
}

// Input describes one judged answer.
type Input struct {
	Mode               domain.PointsMode
	Correct            bool
	BasePoints         int
	NegativePoints     int
	Wager              *int // non-nil for wager questions
	Streak             int  // before this answer
	RoundIdx           int
	NegativeEnabled    bool
	StreakBonusEnabled bool
}

// Delta returns the score change for in.
func (p Policy) Delta(in Input) int {
	if in.Wager != nil {
		switch {
		case in.Correct:
			return *in.Wager
		case in.NegativeEnabled:
			return -*in.Wager
		default:
			return 0
		}
	}

	if !in.Correct {
		if in.NegativeEnabled {
			return -in.NegativePoints
		}
		return 0
	}

	delta := in.BasePoints
	if in.Mode == domain.PointsProgressive && in.RoundIdx > 0 {
		delta = int(math.Round(float64(in.BasePoints) * (1 + float64(in.RoundIdx)*p.ProgressiveStep)))
	}
	if in.StreakBonusEnabled && p.StreakThreshold >= 0 && in.Streak >= p.StreakThreshold {
		delta += p.StreakBonus
	}
	return delta
}

// ComputeDelta applies the default policy.
func ComputeDelta(in Input) int {
	return DefaultPolicy().Delta(in)
}

// ClampWager bounds a wager to [0, score].
func ClampWager(wager, score int) int {
	if score < 0 {
		score = 0
	}
	if wager < 0 {
		return 0
	}
	if wager > score {
		return score
	}
	return wager
}

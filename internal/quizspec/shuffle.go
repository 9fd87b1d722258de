package quizspec

import (
	"hash/fnv"
	"math/rand"

	"pubquiz-service/internal/domain"
)

// OptionOrder returns a display permutation of q's options: element i is the
// index into q.Options shown in slot i. The permutation is seeded by the
// question id, so every replica renders the same order and CorrectAnswer
// keeps referring to the unshuffled options.
func OptionOrder(q domain.Question) []int {
	if len(q.Options) == 0 {
		return nil
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(q.ID))
	rnd := rand.New(rand.NewSource(int64(h.Sum64())))
	return rnd.Perm(len(q.Options))
}

// DisplaySlot returns the slot at which the option with the given original
// index appears in order, or -1.
func DisplaySlot(order []int, original int) int {
	for slot, idx := range order {
		if idx == original {
			return slot
		}
	}
	return -1
}

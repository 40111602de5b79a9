// Package sample implements reproducible uniform sampling without
// replacement, seeded once per node from RuntimeConfig.Seed so that, given
// identical configs and arrival order, the sequence of sampled targets is
// identical across runs (spec.md §8, seed determinism).
package sample

import "math/rand"

// Sampler draws k distinct items from a candidate slice using a single
// seeded source, exclusively owned by the gossip/pull/peer-table sampling
// paths (spec.md §5 resource policy).
type Sampler struct {
	rng *rand.Rand
}

// New returns a Sampler seeded with seed.
func New(seed int64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewSource(seed))}
}

// Choose returns up to k distinct elements of candidates, in the order the
// sampler's shuffle produces them. If k >= len(candidates), a shuffled copy
// of the whole slice is returned. The input slice is never mutated.
func Choose[T any](s *Sampler, candidates []T, k int) []T {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	pool := make([]T, len(candidates))
	copy(pool, candidates)
	s.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	return pool[:k]
}

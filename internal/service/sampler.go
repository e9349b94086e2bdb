package service

import (
	"math/rand/v2"
	"sync"
)

// Sampler draws questions without replacement and shuffles presentation
// order. It is safe for concurrent use.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler wraps rng; a nil rng gets a randomly seeded PCG source.
func NewSampler(rng *rand.Rand) *Sampler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Sampler{rng: rng}
}

// Sample returns k distinct elements of pool chosen uniformly at random with
// a partial Fisher-Yates pass. pool is not modified. k is clamped to len(pool).
func (s *Sampler) Sample(pool []int, k int) []int {
	if k > len(pool) {
		k = len(pool)
	}
	if k <= 0 {
		return []int{}
	}

	work := make([]int, len(pool))
	copy(work, pool)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < k; i++ {
		j := i + s.rng.IntN(len(work)-i)
		work[i], work[j] = work[j], work[i]
	}
	return work[:k:k]
}

// Shuffle permutes ids in place uniformly at random.
func (s *Sampler) Shuffle(ids []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(ids) - 1; i > 0; i-- {
		j := s.rng.IntN(i + 1)
		ids[i], ids[j] = ids[j], ids[i]
	}
}

package sampler

import (
	"math/rand/v2"
	"slices"
	"sync"
)

// Sampler draws uniform random subsets without replacement.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Sampler backed by src. A nil src uses the runtime's global generator.
func New(src rand.Source) *Sampler {
	s := &Sampler{}
	if src != nil {
		s.rng = rand.New(src)
	}
	return s
}

// Sample returns min(k, len(items)) distinct elements of items. When k covers the whole
// population every element is returned in its original order; otherwise each k-subset is
// equally likely. items is never modified.
func Sample[T any](s *Sampler, items []T, k int) []T {
	n := len(items)
	if k <= 0 || n == 0 {
		return []T{}
	}
	if k >= n {
		return slices.Clone(items)
	}

	pool := slices.Clone(items)
	// partial Fisher-Yates: after step i, pool[:i+1] is a uniform sample of size i+1
	for i := range k {
		j := i + s.intN(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}

	return pool[:k:k]
}

func (s *Sampler) intN(n int) int {
	if s == nil || s.rng == nil {
		return rand.IntN(n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

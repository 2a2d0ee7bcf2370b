package nftgen

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Rand is the random source the selector draws from. *rand.Rand from either
// math/rand or math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
}

// NewRand returns a seeded generator. A zero seed picks one from the clock;
// the seed actually used is returned so the draw can be replayed.
func NewRand(seed int64) (*rand.Rand, int64) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed)), seed
}

// SeedSequence hands out one seed per generation so that a single base seed
// makes a whole run replayable. Safe for concurrent use.
type SeedSequence struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeedSequence starts a sequence; a zero seed starts from the clock.
func NewSeedSequence(seed int64) *SeedSequence {
	rng, _ := NewRand(seed)
	return &SeedSequence{rng: rng}
}

// Next returns a non-zero seed.
func (s *SeedSequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if v := s.rng.Int63(); v != 0 {
			return v
		}
	}
}

// Select draws one option from group with probability proportional to its
// weight: u is drawn uniformly from [0, total) and the first option whose
// cumulative weight exceeds u wins. A single-option group returns that option
// without consuming randomness.
//
// Select panics on a group with no options; the loader never produces one.
func Select(group *LayerGroup, rng Rand) *LayerOption {
	n := len(group.Options)
	switch n {
	case 0:
		panic(fmt.Sprintf("nftgen: select from empty group %q", group.Name))
	case 1:
		return &group.Options[0]
	}

	cum := cumulativeWeights(group)
	u := rng.Float64() * cum[n-1]
	i := sort.Search(n, func(i int) bool { return cum[i] > u })
	// u < total always holds, guard anyway against rounding at the top end.
	return &group.Options[min(i, n-1)]
}

// Probabilities returns each option's chance of being selected, in option order.
func Probabilities(group *LayerGroup) []float64 {
	p := weights(group)
	if total := floats.Sum(p); total > 0 {
		floats.Scale(1/total, p)
	}
	return p
}

// Entropy is the Shannon entropy, in bits, of a group's selection
// distribution: 0 for a single option, log2(n) for n uniform options.
func Entropy(group *LayerGroup) float64 {
	return stat.Entropy(Probabilities(group)) / math.Ln2
}

func weights(group *LayerGroup) []float64 {
	w := make([]float64, len(group.Options))
	for i, o := range group.Options {
		w[i] = o.Weight
	}
	return w
}

func cumulativeWeights(group *LayerGroup) []float64 {
	w := weights(group)
	return floats.CumSum(w, w)
}

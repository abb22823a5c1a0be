package genetic

import (
	"math/rand"
	"sort"
)

// computeWeights derives the selection mass of every schedule from its rating:
// weight[i] = rating[i] − min(rating), leaving the worst schedule at zero.
// Selection operates on these shifted, unnormalized weights; the returned sum
// is kept only for diagnostics.
func (e *Engine) computeWeights() float64 {
	pop := e.pop
	worst := pop.ratings[0]
	for _, r := range pop.ratings[1:] {
		if r < worst {
			worst = r
		}
	}

	e.forEachSchedule(0, pop.Size(), func(i int) {
		pop.weights[i] = pop.ratings[i] - worst
	})

	sum := 0.0
	for _, w := range pop.weights {
		sum += w
	}
	return sum
}

// rankSchedules fills the rank array with schedule indices sorted by
// descending rating, ties broken by original index order, and returns the
// best rating.
func (e *Engine) rankSchedules() float64 {
	pop := e.pop
	for i := range pop.rank {
		pop.rank[i] = i
	}
	sort.SliceStable(pop.rank, func(a, b int) bool {
		return pop.ratings[pop.rank[a]] > pop.ratings[pop.rank[b]]
	})
	return pop.ratings[pop.rank[0]]
}

// pickParent samples one schedule index with probability proportional to its
// weight: a uniform draw in [0,1) is matched against the running cumulative
// weight in index order. When the draw exceeds every cumulative sum (all
// weights zero, or rounding at the tail) the result falls back to a uniform
// random index instead of an invalid sentinel.
func (e *Engine) pickParent(rng *rand.Rand) int {
	pop := e.pop
	r := rng.Float64()
	sum := 0.0
	for i := 0; i < pop.Size(); i++ {
		sum += pop.weights[i]
		if r < sum {
			return i
		}
	}
	return rng.Intn(pop.Size())
}

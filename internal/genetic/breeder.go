package genetic

import "math/rand"

// breedChild produces the child at index i of the next buffer from two
// distinct parents sampled by weight.
func (e *Engine) breedChild(i int, rng *rand.Rand) {
	mom := e.pickParent(rng)
	dad := mom
	for dad == mom {
		dad = e.pickParent(rng)
	}

	cut := rng.Intn(e.pop.Slots())
	crossover(e.pop.Current(mom), e.pop.Current(dad), e.pop.Next(i), cut)
}

// crossover fills child with an order crossover of the two parents: every
// cell in timeslots [0, cut) is copied verbatim from mom, and the remaining
// cells are filled in slot-major order from dad, scanning forward (with
// wraparound) past values the child already holds. Because only unused values
// are ever inserted, the child is a valid permutation whenever every value
// can be sourced; if dad itself carries duplicates the gap is closed with the
// lowest value still missing.
func crossover(mom, dad, child *Grid, cut int) {
	slots, rooms := child.Slots(), child.Rooms()
	total := slots * rooms
	used := make([]bool, total)

	for sl := 0; sl < cut; sl++ {
		for r := 0; r < rooms; r++ {
			v := mom.At(sl, r)
			child.Set(sl, r, v)
			used[v] = true
		}
	}

	for sl := cut; sl < slots; sl++ {
		for r := 0; r < rooms; r++ {
			idx := sl*rooms + r
			v := dad.cells[idx]
			scanned := 0
			for used[v] && scanned < total {
				idx = (idx + 1) % total
				v = dad.cells[idx]
				scanned++
			}
			if used[v] {
				v = lowestUnused(used)
			}
			child.Set(sl, r, v)
			used[v] = true
		}
	}
}

func lowestUnused(used []bool) int {
	for v, taken := range used {
		if !taken {
			return v
		}
	}
	return 0
}

package genetic

import "math/rand"

// mutateSchedule perturbs one schedule of the next buffer: every cell swaps,
// with probability rate, with the cell of a different uniformly-chosen
// timeslot in the same room. Swaps preserve the permutation property; any
// ordering or priority damage is healed by the repair pass that follows the
// buffer swap. Schedule index 0 is never mutated (the caller skips it).
func (e *Engine) mutateSchedule(i int, rate float64, rng *rand.Rand) {
	g := e.pop.Next(i)
	slots, rooms := g.Slots(), g.Rooms()
	if slots < 2 {
		return
	}

	for sl := 0; sl < slots; sl++ {
		for r := 0; r < rooms; r++ {
			if rng.Float64() >= rate {
				continue
			}
			sl2 := rng.Intn(slots - 1)
			if sl2 >= sl {
				sl2++
			}
			g.swap(sl, r, sl2, r)
		}
	}
}

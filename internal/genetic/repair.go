package genetic

// repairGrid legalizes one schedule in place with two sequential passes.
//
// The ordering pass is a single sweep over every (earlier, later) cell pair,
// swapping the values whenever the earlier cell must not precede the later
// one. One sweep can leave residual violations when fixing them would need a
// second pass; those carry over and are picked up by the next generation's
// repair.
//
// The priority pass bubble-sorts each timeslot's row by descending session
// room priority. Empty cells sink to the end; equal priorities keep their
// original order.
func repairGrid(g *Grid, cons Constraints) {
	nmini := cons.SessionCount()
	slots, rooms := g.Slots(), g.Rooms()

	for sl1 := 0; sl1 < slots; sl1++ {
		for r1 := 0; r1 < rooms; r1++ {
			if g.At(sl1, r1) >= nmini {
				continue
			}
			for sl2 := sl1 + 1; sl2 < slots; sl2++ {
				for r2 := 0; r2 < rooms; r2++ {
					if g.At(sl2, r2) >= nmini {
						continue
					}
					if cons.BreaksOrdering(g.At(sl1, r1), g.At(sl2, r2)) {
						g.swap(sl1, r1, sl2, r2)
					}
				}
			}
		}
	}

	for sl := 0; sl < slots; sl++ {
		for i := 1; i < rooms; i++ {
			for j := 0; j < rooms-i; j++ {
				m1 := g.At(sl, j)
				m2 := g.At(sl, j+1)
				if m2 >= nmini {
					continue
				}
				if m1 >= nmini || cons.HigherPriority(m2, m1) {
					g.swap(sl, j, sl, j+1)
				}
			}
		}
	}
}

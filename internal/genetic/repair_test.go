package genetic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// stubConstraints is a minimal constraint set for grid-level tests.
type stubConstraints struct {
	sessions int
	after    map[[2]int]bool // [first, second]: first must not precede second
	priority []int
}

func (s stubConstraints) SessionCount() int { return s.sessions }

func (s stubConstraints) BreaksOrdering(first, second int) bool {
	return s.after[[2]int{first, second}]
}

func (s stubConstraints) HigherPriority(a, b int) bool {
	if s.priority == nil {
		return false
	}
	return s.priority[a] > s.priority[b]
}

func TestRepairGridEnforcesOrderingForAnyArrangement(t *testing.T) {
	// Session 1 must run no later than session 2. Whatever arrangement of
	// the three sessions (and one empty cell) the grid starts from, one
	// repair pass leaves 1 at a timeslot index at or before 2's.
	cons := stubConstraints{
		sessions: 3,
		after:    map[[2]int]bool{{2, 1}: true},
	}

	slotOf := func(g *Grid, id int) int {
		for sl := 0; sl < g.Slots(); sl++ {
			for r := 0; r < g.Rooms(); r++ {
				if g.At(sl, r) == id {
					return sl
				}
			}
		}
		return -1
	}

	permutations := [][]int{}
	var permute func(prefix, rest []int)
	permute = func(prefix, rest []int) {
		if len(rest) == 0 {
			permutations = append(permutations, append([]int(nil), prefix...))
			return
		}
		for i := range rest {
			next := append(append([]int(nil), rest[:i]...), rest[i+1:]...)
			permute(append(prefix, rest[i]), next)
		}
	}
	permute(nil, []int{0, 1, 2, 3})

	for _, cells := range permutations {
		g := NewGrid(2, 2)
		copy(g.cells, cells)

		repairGrid(g, cons)

		assert.LessOrEqual(t, slotOf(g, 1), slotOf(g, 2), "start %v ended as %v", cells, g.cells)
		assertPermutation(t, g)
	}
}

func TestRepairGridSortsRowByDescendingPriority(t *testing.T) {
	cons := stubConstraints{
		sessions: 3,
		priority: []int{1, 5, 3},
	}

	g := NewGrid(1, 3)
	g.Set(0, 0, 0)
	g.Set(0, 1, 1)
	g.Set(0, 2, 2)

	repairGrid(g, cons)

	assert.Equal(t, 1, g.At(0, 0))
	assert.Equal(t, 2, g.At(0, 1))
	assert.Equal(t, 0, g.At(0, 2))
}

func TestRepairGridSinksEmptyCellsToRowEnd(t *testing.T) {
	cons := stubConstraints{sessions: 2}

	g := NewGrid(1, 4)
	g.Set(0, 0, 3) // empty
	g.Set(0, 1, 0)
	g.Set(0, 2, 2) // empty
	g.Set(0, 3, 1)

	repairGrid(g, cons)

	assert.Less(t, g.At(0, 0), 2)
	assert.Less(t, g.At(0, 1), 2)
	assert.GreaterOrEqual(t, g.At(0, 2), 2)
	assert.GreaterOrEqual(t, g.At(0, 3), 2)
	assertPermutation(t, g)
}

// assertPermutation checks the grid holds every value in [0, slots·rooms)
// exactly once.
func assertPermutation(t *testing.T, g *Grid) {
	t.Helper()
	total := g.Slots() * g.Rooms()
	seen := make([]bool, total)
	for sl := 0; sl < g.Slots(); sl++ {
		for r := 0; r < g.Rooms(); r++ {
			v := g.At(sl, r)
			if assert.GreaterOrEqual(t, v, 0) && assert.Less(t, v, total) {
				assert.False(t, seen[v], "value %d appears twice", v)
				seen[v] = true
			}
		}
	}
}

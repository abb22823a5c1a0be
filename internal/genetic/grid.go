package genetic

// Grid is one candidate schedule: a timeslot × room matrix whose cells hold a
// session id below the session count, or an empty sentinel at or above it.
// Across one grid every integer in [0, slots·rooms) appears exactly once, so
// a grid is a permutation with the ids ≥ sessionCount treated as empty.
type Grid struct {
	slots, rooms int
	cells        []int
}

// NewGrid allocates a zeroed grid of the given shape.
func NewGrid(slots, rooms int) *Grid {
	return &Grid{
		slots: slots,
		rooms: rooms,
		cells: make([]int, slots*rooms),
	}
}

// Slots reports the timeslot count.
func (g *Grid) Slots() int { return g.slots }

// Rooms reports the room count.
func (g *Grid) Rooms() int { return g.rooms }

// At returns the value stored at (slot, room).
func (g *Grid) At(slot, room int) int {
	return g.cells[slot*g.rooms+room]
}

// Set stores a value at (slot, room).
func (g *Grid) Set(slot, room, value int) {
	g.cells[slot*g.rooms+room] = value
}

// swap exchanges the values of two cells.
func (g *Grid) swap(slot1, room1, slot2, room2 int) {
	i, j := slot1*g.rooms+room1, slot2*g.rooms+room2
	g.cells[i], g.cells[j] = g.cells[j], g.cells[i]
}

// CopyFrom overwrites the grid with the contents of src. Shapes must match.
func (g *Grid) CopyFrom(src *Grid) {
	copy(g.cells, src.cells)
}

// Clone returns an independent copy of the grid.
func (g *Grid) Clone() *Grid {
	dst := NewGrid(g.slots, g.rooms)
	dst.CopyFrom(g)
	return dst
}

package genetic

// Population owns the double-buffered schedule grids and the per-schedule
// scalar arrays. It is pure storage: no validation or selection logic lives
// here. The current buffer is read during breeding while children are written
// to the next buffer; SwapBuffers promotes the children without copying.
type Population struct {
	current, next []*Grid
	ratings       []float64
	weights       []float64
	rank          []int
	themeCounts   [][]int // per schedule, per theme penalty counters
}

// NewPopulation allocates size schedules of shape slots × rooms plus the
// rating, weight, rank, and theme-penalty arrays.
func NewPopulation(size, slots, rooms, themes int) *Population {
	p := &Population{
		current:     make([]*Grid, size),
		next:        make([]*Grid, size),
		ratings:     make([]float64, size),
		weights:     make([]float64, size),
		rank:        make([]int, size),
		themeCounts: make([][]int, size),
	}
	for i := 0; i < size; i++ {
		p.current[i] = NewGrid(slots, rooms)
		p.next[i] = NewGrid(slots, rooms)
		p.themeCounts[i] = make([]int, themes)
	}
	return p
}

// Size reports the number of schedules.
func (p *Population) Size() int { return len(p.current) }

// Slots reports the timeslot count of every schedule.
func (p *Population) Slots() int { return p.current[0].Slots() }

// Rooms reports the room count of every schedule.
func (p *Population) Rooms() int { return p.current[0].Rooms() }

// Current returns the i-th schedule of the current generation.
func (p *Population) Current(i int) *Grid { return p.current[i] }

// Next returns the i-th schedule of the generation under construction.
func (p *Population) Next(i int) *Grid { return p.next[i] }

// Rating returns the fitness of the i-th current schedule.
func (p *Population) Rating(i int) float64 { return p.ratings[i] }

// Rank returns the schedule index holding the given descending-rating rank.
func (p *Population) Rank(pos int) int { return p.rank[pos] }

// ThemeCounts returns the per-theme penalty counters of the i-th schedule.
func (p *Population) ThemeCounts(i int) []int { return p.themeCounts[i] }

// SwapBuffers exchanges the current and next buffers.
func (p *Population) SwapBuffers() {
	p.current, p.next = p.next, p.current
}

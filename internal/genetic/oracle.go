package genetic

// Rating is the outcome of scoring one schedule grid.
type Rating struct {
	Score          float64 `json:"score"`
	Order          int     `json:"order_penalty"`
	Oversubscribed int     `json:"oversubscribed_penalty"`
	Theme          int     `json:"theme_penalty"`
	Priority       int     `json:"priority_penalty"`
}

// Oracle scores a schedule grid. Rate must be deterministic for a fixed grid
// and safe to invoke concurrently for different grids: it is called once per
// schedule per generation across the whole population in parallel.
// themeCounts has ThemeCount() entries and is reset and filled by Rate.
type Oracle interface {
	ThemeCount() int
	Rate(g *Grid, themeCounts []int) Rating
}

// Constraints exposes the catalog predicates the engine needs for repair.
type Constraints interface {
	// SessionCount is the number of valid ids; cell values at or above it are empty.
	SessionCount() int
	// BreaksOrdering reports whether `first` must not precede `second`.
	BreaksOrdering(first, second int) bool
	// HigherPriority reports whether session a outranks session b for
	// higher-priority rooms.
	HigherPriority(a, b int) bool
}

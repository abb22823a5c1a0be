package genetic

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// StopReason is the terminal state of a run.
type StopReason string

const (
	StopConverged     StopReason = "CONVERGED"
	StopMaxGeneration StopReason = "MAX_GENERATIONS_REACHED"
)

// Options are the knobs of one optimization run.
type Options struct {
	PopulationSize int
	EliteSize      int
	MutationRate   float64
	Generations    int
	Workers        int
	Seed           int64

	// Progress, when set, is invoked once per generation with the best rating
	// observed so far. It runs on the orchestrating goroutine between phases.
	Progress func(generation int, best float64)
}

func (o Options) validate(slots int) error {
	if o.PopulationSize < 2 {
		return fmt.Errorf("population size must be at least 2, got %d", o.PopulationSize)
	}
	if o.EliteSize < 1 || o.EliteSize >= o.PopulationSize {
		return fmt.Errorf("elite size must be in [1, population), got %d", o.EliteSize)
	}
	if o.MutationRate < 0 || o.MutationRate > 1 {
		return fmt.Errorf("mutation rate must be in [0, 1], got %g", o.MutationRate)
	}
	if o.Generations < 1 {
		return fmt.Errorf("generation count must be positive, got %d", o.Generations)
	}
	if slots < 1 {
		return fmt.Errorf("timeslot count must be positive, got %d", slots)
	}
	return nil
}

// Result summarizes a finished run.
type Result struct {
	Reason      StopReason `json:"stop_reason"`
	Generations int        `json:"generations"`
	BestRating  float64    `json:"best_rating"`
	Best        *Grid      `json:"-"`
	Diagnostics Rating     `json:"diagnostics"`
}

// Engine drives the generation loop over a double-buffered population:
// rate all schedules in parallel, rank and check convergence, derive
// selection weights, carry elites over unchanged, breed the remaining
// children, mutate everything but the best schedule, swap buffers, repair.
// Every phase fully completes before the next begins.
type Engine struct {
	cons    Constraints
	oracle  Oracle
	slots   int
	rooms   int
	workers int
	logger  *zap.Logger

	pop  *Population
	pool *RandPool
	diag Rating // penalty components of schedule index 0, refreshed per rating phase
}

// NewEngine assembles an engine over the given constraint set and rating
// oracle for a grid of slots × rooms cells.
func NewEngine(cons Constraints, oracle Oracle, slots, rooms int, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cons:   cons,
		oracle: oracle,
		slots:  slots,
		rooms:  rooms,
		logger: logger,
	}
}

// Run executes the full generation loop and returns the best schedule found.
// The only cancellation point is between generations; phases are never
// interrupted mid-flight.
func (e *Engine) Run(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.validate(e.slots); err != nil {
		return nil, err
	}

	e.workers = opts.Workers
	if e.workers < 1 {
		e.workers = 1
	}
	e.pop = NewPopulation(opts.PopulationSize, e.slots, e.rooms, e.oracle.ThemeCount())
	e.pool = NewRandPool(e.workers, opts.Seed)

	e.initializePopulation()
	e.repairAll()

	best := 0.0
	generation := 0
	reason := StopMaxGeneration

	for ; generation < opts.Generations; generation++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		e.rateAll()
		best = e.rankSchedules()

		if best == 1.0 {
			reason = StopConverged
			break
		}

		e.logger.Info("generation complete",
			zap.Int("generation", generation),
			zap.Float64("best_rating", best),
			zap.Int("order_penalty", e.diag.Order),
			zap.Int("oversubscribed_penalty", e.diag.Oversubscribed),
			zap.Int("theme_penalty", e.diag.Theme),
			zap.Int("priority_penalty", e.diag.Priority),
		)
		if opts.Progress != nil {
			opts.Progress(generation, best)
		}

		e.computeWeights()
		e.breedPopulation(opts.EliteSize)
		e.mutatePopulation(opts.MutationRate)
		e.pop.SwapBuffers()
		e.repairAll()
	}

	if reason == StopMaxGeneration {
		// The loop ended on the generation budget; the last repair pass may
		// have changed the grids, so score and rank them once more.
		e.rateAll()
		best = e.rankSchedules()
		if best == 1.0 {
			reason = StopConverged
		}
	}

	e.logger.Info("run finished",
		zap.String("stop_reason", string(reason)),
		zap.Int("generations", generation),
		zap.Float64("best_rating", best),
	)

	return &Result{
		Reason:      reason,
		Generations: generation,
		BestRating:  best,
		Best:        e.BestSchedule(),
		Diagnostics: e.diag,
	}, nil
}

// BestSchedule returns a copy of the top-rated schedule's grid.
func (e *Engine) BestSchedule() *Grid {
	return e.pop.Current(e.pop.Rank(0)).Clone()
}

// initializePopulation fills every schedule with an independent uniformly
// random permutation of [0, slots·rooms).
func (e *Engine) initializePopulation() {
	e.forEachSchedule(0, e.pop.Size(), func(i int) {
		rng := e.pool.Get()
		defer e.pool.Put(rng)

		g := e.pop.Current(i)
		perm := rng.Perm(e.slots * e.rooms)
		copy(g.cells, perm)
	})
}

// rateAll scores every current schedule in parallel. Schedule index 0 also
// refreshes the diagnostic penalty components.
func (e *Engine) rateAll() {
	e.forEachSchedule(0, e.pop.Size(), func(i int) {
		rating := e.oracle.Rate(e.pop.Current(i), e.pop.ThemeCounts(i))
		e.pop.ratings[i] = rating.Score
		if i == 0 {
			e.diag = rating
		}
	})
}

// breedPopulation copies the elite schedules unchanged into the next buffer
// and breeds the remaining slots from weighted parent pairs in parallel.
func (e *Engine) breedPopulation(eliteSize int) {
	for i := 0; i < eliteSize; i++ {
		e.pop.Next(i).CopyFrom(e.pop.Current(e.pop.Rank(i)))
	}

	e.forEachSchedule(eliteSize, e.pop.Size(), func(i int) {
		rng := e.pool.Get()
		defer e.pool.Put(rng)
		e.breedChild(i, rng)
	})
}

// mutatePopulation perturbs every schedule of the next buffer except index 0.
func (e *Engine) mutatePopulation(rate float64) {
	e.forEachSchedule(1, e.pop.Size(), func(i int) {
		rng := e.pool.Get()
		defer e.pool.Put(rng)
		e.mutateSchedule(i, rate, rng)
	})
}

// repairAll legalizes every current schedule in parallel.
func (e *Engine) repairAll() {
	e.forEachSchedule(0, e.pop.Size(), func(i int) {
		repairGrid(e.pop.Current(i), e.cons)
	})
}

package rating

import (
	"github.com/confsched/scheduler-api/internal/genetic"
	"github.com/confsched/scheduler-api/internal/models"
)

// Weights scale the four penalty components of the schedule score.
type Weights struct {
	Order          float64
	Oversubscribed float64
	Theme          float64
	Priority       float64
}

// DefaultWeights order multi-part violations above everything else: a split
// session is useless to attendees, while theme and priority collisions only
// degrade the experience.
var DefaultWeights = Weights{
	Order:          4.0,
	Oversubscribed: 3.0,
	Theme:          1.0,
	Priority:       0.5,
}

// CatalogOracle scores schedule grids against a session/room catalog. It is
// deterministic for a fixed grid, keeps no mutable state, and is therefore
// safe for concurrent use across schedules.
//
// score = 1 / (1 + Σ weighted penalty counts), so a violation-free schedule
// scores exactly 1.0 and every additional violation strictly lowers it.
type CatalogOracle struct {
	catalog *models.Catalog
	weights Weights

	themeOf  []int
	priority []int
	sharing  [][]bool // speaker overlap, symmetric
}

// NewCatalogOracle precomputes the pairwise lookups used on the hot path.
func NewCatalogOracle(catalog *models.Catalog, weights Weights) *CatalogOracle {
	n := catalog.SessionCount()
	o := &CatalogOracle{
		catalog:  catalog,
		weights:  weights,
		themeOf:  make([]int, n),
		priority: make([]int, n),
		sharing:  make([][]bool, n),
	}
	for i := 0; i < n; i++ {
		o.themeOf[i] = catalog.ThemeIndexOf(i)
		o.priority[i] = catalog.Sessions[i].Priority
		o.sharing[i] = make([]bool, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if catalog.SharesSpeaker(i, j) {
				o.sharing[i][j] = true
				o.sharing[j][i] = true
			}
		}
	}
	return o
}

// ThemeCount reports the number of distinct themes in the catalog.
func (o *CatalogOracle) ThemeCount() int {
	return len(o.catalog.Themes())
}

// Rate scores one grid and fills the per-theme conflict counters.
func (o *CatalogOracle) Rate(g *genetic.Grid, themeCounts []int) genetic.Rating {
	nmini := o.catalog.SessionCount()
	slots, rooms := g.Slots(), g.Rooms()

	for i := range themeCounts {
		themeCounts[i] = 0
	}

	var r genetic.Rating

	// Ordering violations across timeslot pairs.
	for sl1 := 0; sl1 < slots; sl1++ {
		for r1 := 0; r1 < rooms; r1++ {
			first := g.At(sl1, r1)
			if first >= nmini {
				continue
			}
			for sl2 := sl1 + 1; sl2 < slots; sl2++ {
				for r2 := 0; r2 < rooms; r2++ {
					second := g.At(sl2, r2)
					if second >= nmini {
						continue
					}
					if o.catalog.BreaksOrdering(first, second) {
						r.Order++
					}
				}
			}
		}
	}

	// Same-timeslot speaker and theme collisions, plus room-priority
	// inversions within each timeslot.
	for sl := 0; sl < slots; sl++ {
		for r1 := 0; r1 < rooms; r1++ {
			a := g.At(sl, r1)
			if a >= nmini {
				continue
			}
			for r2 := r1 + 1; r2 < rooms; r2++ {
				b := g.At(sl, r2)
				if b >= nmini {
					continue
				}
				if o.sharing[a][b] {
					r.Oversubscribed++
				}
				if o.themeOf[a] == o.themeOf[b] {
					r.Theme++
					themeCounts[o.themeOf[a]]++
				}
				if o.priority[b] > o.priority[a] {
					r.Priority++
				}
			}
		}
	}

	penalty := o.weights.Order*float64(r.Order) +
		o.weights.Oversubscribed*float64(r.Oversubscribed) +
		o.weights.Theme*float64(r.Theme) +
		o.weights.Priority*float64(r.Priority)
	r.Score = 1.0 / (1.0 + penalty)
	return r
}

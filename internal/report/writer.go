package report

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/confsched/scheduler-api/internal/genetic"
	"github.com/confsched/scheduler-api/internal/models"
	"github.com/confsched/scheduler-api/pkg/export"
)

// Writer renders a schedule grid into the tabular report formats.
type Writer struct {
	catalog *models.Catalog
}

// NewWriter builds a report writer over the given catalog.
func NewWriter(catalog *models.Catalog) *Writer {
	return &Writer{catalog: catalog}
}

// Render produces the markdown report: a header comment with the overall
// score, then one table block per timeslot with a row per occupied room
// listing session title, theme, priority, and room name.
func (w *Writer) Render(g *genetic.Grid, score float64) string {
	nmini := w.catalog.SessionCount()
	var b strings.Builder

	fmt.Fprintf(&b, "# Conference schedule with score %v\n\n", score)

	for slot := 0; slot < g.Slots(); slot++ {
		fmt.Fprintf(&b, "|Slot %d|   |   |   |\n|---|---|---|---|\n", slot)
		for room := 0; room < g.Rooms(); room++ {
			id := g.At(slot, room)
			if id >= nmini {
				continue
			}
			session := w.catalog.Sessions[id]
			fmt.Fprintf(&b, "|%s|%s|%d|%s|\n",
				session.FullTitle(), session.Theme, session.Priority, w.catalog.Rooms[room].Name)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// WriteFile writes the markdown report to path. A failure to create or write
// the file is returned to the caller rather than leaving a truncated artifact
// behind silently.
func (w *Writer) WriteFile(path string, g *genetic.Grid, score float64) error {
	if err := os.WriteFile(path, []byte(w.Render(g, score)), 0o644); err != nil {
		return fmt.Errorf("write schedule report %s: %w", path, err)
	}
	return nil
}

// Dataset converts the grid into the tabular form shared by the CSV and PDF
// exporters.
func (w *Writer) Dataset(g *genetic.Grid) export.Dataset {
	nmini := w.catalog.SessionCount()
	data := export.Dataset{
		Headers: []string{"Timeslot", "Session", "Theme", "Priority", "Room"},
	}

	for slot := 0; slot < g.Slots(); slot++ {
		for room := 0; room < g.Rooms(); room++ {
			id := g.At(slot, room)
			if id >= nmini {
				continue
			}
			session := w.catalog.Sessions[id]
			data.Rows = append(data.Rows, map[string]string{
				"Timeslot": strconv.Itoa(slot),
				"Session":  session.FullTitle(),
				"Theme":    session.Theme,
				"Priority": strconv.Itoa(session.Priority),
				"Room":     w.catalog.Rooms[room].Name,
			})
		}
	}

	return data
}

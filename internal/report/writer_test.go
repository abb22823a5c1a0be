package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confsched/scheduler-api/internal/genetic"
	"github.com/confsched/scheduler-api/internal/models"
)

func reportCatalog(t *testing.T) *models.Catalog {
	t.Helper()
	sessions := []models.Session{
		{Title: "Talk A", Theme: "T1", Priority: 2},
		{Title: "Talk B", Theme: "T2", Priority: 1},
		{Title: "Talk C", Part: 1, Theme: "T1", Priority: 3},
	}
	rooms := []models.Room{
		{Name: "Main", Priority: 2},
		{Name: "Annex", Priority: 1},
	}
	catalog, err := models.NewCatalog(sessions, rooms, 2)
	require.NoError(t, err)
	return catalog
}

func reportGrid() *genetic.Grid {
	g := genetic.NewGrid(2, 2)
	g.Set(0, 0, 0) // Talk A in Main
	g.Set(0, 1, 2) // Talk C part 1 in Annex
	g.Set(1, 0, 1) // Talk B in Main
	g.Set(1, 1, 3) // empty
	return g
}

func TestWriterRenderRowsAndHeader(t *testing.T) {
	w := NewWriter(reportCatalog(t))

	out := w.Render(reportGrid(), 0.25)

	assert.True(t, strings.HasPrefix(out, "# Conference schedule with score 0.25\n"), "got header %q", out)
	assert.Contains(t, out, "|Slot 0|   |   |   |")
	assert.Contains(t, out, "|Slot 1|   |   |   |")
	assert.Contains(t, out, "|Talk A|T1|2|Main|")
	assert.Contains(t, out, "|Talk C - Part 1|T1|3|Annex|")
	assert.Contains(t, out, "|Talk B|T2|1|Main|")
}

func TestWriterRenderSkipsEmptyCells(t *testing.T) {
	w := NewWriter(reportCatalog(t))

	out := w.Render(reportGrid(), 1.0)

	// Slot 1's Annex cell is empty, so Annex appears once (slot 0 only).
	assert.Equal(t, 1, strings.Count(out, "|Annex|"))
	assert.Equal(t, 1, strings.Count(out, "|Talk B|"))
}

func TestWriterWriteFile(t *testing.T) {
	w := NewWriter(reportCatalog(t))
	path := filepath.Join(t.TempDir(), "schedule.md")

	require.NoError(t, w.WriteFile(path, reportGrid(), 0.5))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "|Talk A|T1|2|Main|")
}

func TestWriterWriteFileReportsFailure(t *testing.T) {
	w := NewWriter(reportCatalog(t))
	path := filepath.Join(t.TempDir(), "missing", "schedule.md")

	err := w.WriteFile(path, reportGrid(), 0.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write schedule report")
}

func TestWriterDataset(t *testing.T) {
	w := NewWriter(reportCatalog(t))

	data := w.Dataset(reportGrid())

	assert.Equal(t, []string{"Timeslot", "Session", "Theme", "Priority", "Room"}, data.Headers)
	require.Len(t, data.Rows, 3, "empty cells must not produce rows")
	assert.Equal(t, map[string]string{
		"Timeslot": "0",
		"Session":  "Talk A",
		"Theme":    "T1",
		"Priority": "2",
		"Room":     "Main",
	}, data.Rows[0])
}

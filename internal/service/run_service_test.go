package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confsched/scheduler-api/internal/dto"
	"github.com/confsched/scheduler-api/internal/models"
	appErrors "github.com/confsched/scheduler-api/pkg/errors"
)

type stubCache struct {
	mu      sync.Mutex
	items   map[string]string
	sets    int
	gets    int
	deletes int
}

func newStubCache() *stubCache {
	return &stubCache{items: make(map[string]string)}
}

func (c *stubCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	return c.items[key], nil
}

func (c *stubCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.items[key] = value
	return nil
}

func (c *stubCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes++
	delete(c.items, key)
	return nil
}

func testRunConfig() RunConfig {
	return RunConfig{
		PopulationSize: 10,
		EliteSize:      2,
		MutationRate:   0.05,
		Generations:    5,
		Workers:        1,
		Seed:           5374857,
		RetainTTL:      time.Hour,
		MaxParallel:    1,
		ReportCacheTTL: time.Minute,
	}
}

// trivialRequest is satisfiable in generation zero: one session, one room,
// one timeslot.
func trivialRequest() dto.StartRunRequest {
	return dto.StartRunRequest{
		Timeslots: 1,
		Sessions:  []dto.SessionPayload{{Title: "Talk A", Theme: "T1", Priority: 2}},
		Rooms:     []dto.RoomPayload{{Name: "Main", Priority: 1}},
	}
}

func startAndWait(t *testing.T, svc *RunService, req dto.StartRunRequest) string {
	t.Helper()
	run, err := svc.Start(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, models.RunStatusPending, run.Status)
	require.NoError(t, svc.Shutdown(context.Background()))
	return run.RunID
}

func TestRunServiceStartRejectsInvalidPayload(t *testing.T) {
	svc := NewRunService(nil, nil, nil, nil, nil, nil, testRunConfig())

	_, err := svc.Start(context.Background(), dto.StartRunRequest{Timeslots: 1})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRunServiceStartRejectsOverfullCatalog(t *testing.T) {
	svc := NewRunService(nil, nil, nil, nil, nil, nil, testRunConfig())

	req := trivialRequest()
	req.Sessions = append(req.Sessions, dto.SessionPayload{Title: "Talk B", Theme: "T2"})

	_, err := svc.Start(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRunServiceLifecycle(t *testing.T) {
	svc := NewRunService(nil, nil, nil, nil, nil, nil, testRunConfig())
	runID := startAndWait(t, svc, trivialRequest())

	run, err := svc.Get(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 1.0, run.Score)
	assert.Equal(t, "CONVERGED", run.StopReason)
	assert.NotNil(t, run.CompletedAt)
	require.NotNil(t, run.Diagnostics)
	assert.Equal(t, 1.0, run.Diagnostics.Score)

	best, err := svc.Best(context.Background(), runID)
	require.NoError(t, err)
	require.Len(t, best.Assignments, 1)
	assert.Equal(t, dto.SlotAssignment{
		Timeslot: 0,
		Room:     "Main",
		Session:  "Talk A",
		Theme:    "T1",
		Priority: 2,
	}, best.Assignments[0])

	runs, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].RunID)
}

func TestRunServiceReportFormats(t *testing.T) {
	svc := NewRunService(nil, nil, nil, nil, nil, nil, testRunConfig())
	runID := startAndWait(t, svc, trivialRequest())

	md, contentType, err := svc.Report(context.Background(), runID, "")
	require.NoError(t, err)
	assert.Equal(t, "text/markdown", contentType)
	assert.Contains(t, string(md), "|Talk A|T1|2|Main|")

	csvOut, contentType, err := svc.Report(context.Background(), runID, "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Contains(t, string(csvOut), "Talk A")

	pdfOut, contentType, err := svc.Report(context.Background(), runID, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.NotEmpty(t, pdfOut)

	_, _, err = svc.Report(context.Background(), runID, "xml")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRunServiceReportUsesCache(t *testing.T) {
	cache := newStubCache()
	svc := NewRunService(nil, nil, cache, nil, nil, nil, testRunConfig())
	runID := startAndWait(t, svc, trivialRequest())

	first, _, err := svc.Report(context.Background(), runID, "markdown")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	second, _, err := svc.Report(context.Background(), runID, "markdown")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets, "second render must come from the cache")
	assert.Equal(t, first, second)
}

func TestRunServiceWriteReport(t *testing.T) {
	svc := NewRunService(nil, nil, nil, nil, nil, nil, testRunConfig())
	runID := startAndWait(t, svc, trivialRequest())

	path := t.TempDir() + "/schedule.md"
	require.NoError(t, svc.WriteReport(context.Background(), runID, path))
}

func TestRunServiceBestNotReady(t *testing.T) {
	svc := NewRunService(nil, nil, nil, nil, nil, nil, testRunConfig())
	svc.store.Save(&runRecord{run: models.SchedulingRun{
		ID:     "pending-run",
		Status: models.RunStatusPending,
	}})

	_, err := svc.Best(context.Background(), "pending-run")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRunNotReady.Code, appErrors.FromError(err).Code)
}

func TestRunServiceGetUnknownRun(t *testing.T) {
	svc := NewRunService(nil, nil, nil, nil, nil, nil, testRunConfig())

	_, err := svc.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRunServiceConcurrencyLimit(t *testing.T) {
	svc := NewRunService(nil, nil, nil, nil, nil, nil, testRunConfig())
	require.NoError(t, svc.acquireSlot())

	_, err := svc.Start(context.Background(), trivialRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTooManyRuns.Code, appErrors.FromError(err).Code)

	svc.releaseSlot()
	startAndWait(t, svc, trivialRequest())
}

func TestRunServiceDeleteRunningConflict(t *testing.T) {
	svc := NewRunService(nil, nil, nil, nil, nil, nil, testRunConfig())
	svc.store.Save(&runRecord{run: models.SchedulingRun{
		ID:     "live-run",
		Status: models.RunStatusRunning,
	}})

	err := svc.Delete(context.Background(), "live-run")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRunServiceDeleteCompletedRun(t *testing.T) {
	cache := newStubCache()
	svc := NewRunService(nil, nil, cache, nil, nil, nil, testRunConfig())
	runID := startAndWait(t, svc, trivialRequest())

	require.NoError(t, svc.Delete(context.Background(), runID))
	assert.Equal(t, 1, cache.deletes)

	_, err := svc.Get(context.Background(), runID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRunStoreExpiresCompletedRuns(t *testing.T) {
	store := newRunStore(10 * time.Millisecond)
	old := time.Now().Add(-time.Hour)
	store.Save(&runRecord{run: models.SchedulingRun{
		ID:          "stale",
		Status:      models.RunStatusCompleted,
		CompletedAt: &old,
	}})

	_, ok := store.Get("stale")
	assert.False(t, ok, "completed runs must expire after the retention TTL")
}

func TestRunStoreKeepsRunningRuns(t *testing.T) {
	store := newRunStore(time.Nanosecond)
	store.Save(&runRecord{run: models.SchedulingRun{
		ID:     "live",
		Status: models.RunStatusRunning,
	}})

	_, ok := store.Get("live")
	assert.True(t, ok, "running runs never expire")
}

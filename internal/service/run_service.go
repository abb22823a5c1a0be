package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/confsched/scheduler-api/internal/dto"
	"github.com/confsched/scheduler-api/internal/genetic"
	"github.com/confsched/scheduler-api/internal/models"
	"github.com/confsched/scheduler-api/internal/rating"
	"github.com/confsched/scheduler-api/internal/report"
	appErrors "github.com/confsched/scheduler-api/pkg/errors"
	"github.com/confsched/scheduler-api/pkg/export"
)

type runRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, run *models.SchedulingRun) error
	UpdateCompleted(ctx context.Context, exec sqlx.ExtContext, run *models.SchedulingRun) error
	InsertAssignments(ctx context.Context, exec sqlx.ExtContext, assignments []models.RunAssignment) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// ReportCache stores rendered reports keyed by run id.
type ReportCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RunConfig governs run execution defaults and retention.
type RunConfig struct {
	PopulationSize int
	EliteSize      int
	MutationRate   float64
	Generations    int
	Workers        int
	Seed           int64

	RetainTTL      time.Duration
	MaxParallel    int
	ReportCacheTTL time.Duration
}

// RunService owns the lifecycle of scheduling runs: it validates catalogs,
// executes the genetic engine on background goroutines, retains results in
// memory, and optionally persists completed runs.
type RunService struct {
	cfg       RunConfig
	repo      runRepository
	tx        txProvider
	cache     ReportCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger

	store *runStore

	mu     sync.Mutex
	active int
	wg     sync.WaitGroup
}

// NewRunService wires the run service dependencies. repo, tx, cache, and
// metrics may be nil; the corresponding features are then disabled.
func NewRunService(
	repo runRepository,
	tx txProvider,
	cache ReportCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg RunConfig,
) *RunService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RetainTTL <= 0 {
		cfg.RetainTTL = time.Hour
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 1
	}
	return &RunService{
		cfg:       cfg,
		repo:      repo,
		tx:        tx,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		store:     newRunStore(cfg.RetainTTL),
	}
}

// Start validates the request, registers a pending run, and launches the
// optimization on a background goroutine.
func (s *RunService) Start(ctx context.Context, req dto.StartRunRequest) (*dto.RunResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid run payload")
	}

	catalog, err := buildCatalog(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	opts := s.buildOptions(req)
	if err := s.acquireSlot(); err != nil {
		return nil, err
	}

	run := models.SchedulingRun{
		ID:        uuid.NewString(),
		Status:    models.RunStatusPending,
		Seed:      opts.Seed,
		CreatedAt: time.Now().UTC(),
	}
	rec := &runRecord{run: run, catalog: catalog}
	s.store.Save(rec)

	if s.repo != nil && s.tx != nil {
		if err := s.persistCreated(ctx, &run); err != nil {
			s.store.Delete(run.ID)
			s.releaseSlot()
			return nil, err
		}
	}

	s.wg.Add(1)
	s.metrics.RunStarted()
	go s.execute(run.ID, catalog, opts)

	resp := toRunResponse(rec)
	return &resp, nil
}

// Get returns the state of one run.
func (s *RunService) Get(ctx context.Context, runID string) (*dto.RunResponse, error) {
	rec, ok := s.store.Get(runID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "scheduling run not found")
	}
	resp := toRunResponse(rec)
	return &resp, nil
}

// List returns all retained runs, newest first.
func (s *RunService) List(ctx context.Context) ([]dto.RunResponse, error) {
	records := s.store.List()
	sort.Slice(records, func(i, j int) bool {
		return records[i].run.CreatedAt.After(records[j].run.CreatedAt)
	})
	out := make([]dto.RunResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toRunResponse(rec))
	}
	return out, nil
}

// Best returns the top-rated schedule of a completed run.
func (s *RunService) Best(ctx context.Context, runID string) (*dto.BestScheduleResponse, error) {
	rec, err := s.completedRecord(runID)
	if err != nil {
		return nil, err
	}

	nmini := rec.catalog.SessionCount()
	resp := &dto.BestScheduleResponse{
		RunID: rec.run.ID,
		Score: rec.run.Score,
	}
	for slot := 0; slot < rec.best.Slots(); slot++ {
		for room := 0; room < rec.best.Rooms(); room++ {
			id := rec.best.At(slot, room)
			if id >= nmini {
				continue
			}
			session := rec.catalog.Sessions[id]
			resp.Assignments = append(resp.Assignments, dto.SlotAssignment{
				Timeslot: slot,
				Room:     rec.catalog.Rooms[room].Name,
				Session:  session.FullTitle(),
				Theme:    session.Theme,
				Priority: session.Priority,
			})
		}
	}
	return resp, nil
}

// Report renders the best schedule of a completed run. Supported formats are
// "markdown" (default), "csv", and "pdf". Markdown renders are cached.
func (s *RunService) Report(ctx context.Context, runID, format string) ([]byte, string, error) {
	rec, err := s.completedRecord(runID)
	if err != nil {
		return nil, "", err
	}

	writer := report.NewWriter(rec.catalog)

	switch format {
	case "", "markdown":
		key := reportCacheKey(runID)
		if s.cache != nil {
			if cached, err := s.cache.Get(ctx, key); err == nil && cached != "" {
				return []byte(cached), "text/markdown", nil
			}
		}
		rendered := writer.Render(rec.best, rec.run.Score)
		if s.cache != nil {
			if err := s.cache.Set(ctx, key, rendered, s.cfg.ReportCacheTTL); err != nil {
				s.logger.Warn("report cache write failed", zap.String("run_id", runID), zap.Error(err))
			}
		}
		return []byte(rendered), "text/markdown", nil
	case "csv":
		payload, err := export.NewCSVExporter().Render(writer.Dataset(rec.best))
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv report")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := export.NewPDFExporter().Render(writer.Dataset(rec.best), fmt.Sprintf("Conference schedule %s", runID))
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report format %q", format))
	}
}

// WriteReport renders the markdown report of a completed run to a file path.
func (s *RunService) WriteReport(ctx context.Context, runID, path string) error {
	rec, err := s.completedRecord(runID)
	if err != nil {
		return err
	}
	if err := report.NewWriter(rec.catalog).WriteFile(path, rec.best, rec.run.Score); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write report file")
	}
	return nil
}

// Delete removes a retained run. Running runs cannot be deleted.
func (s *RunService) Delete(ctx context.Context, runID string) error {
	rec, ok := s.store.Get(runID)
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "scheduling run not found")
	}
	status := rec.snapshot().Status
	if status == models.RunStatusPending || status == models.RunStatusRunning {
		return appErrors.Clone(appErrors.ErrConflict, "run is still executing")
	}
	s.store.Delete(runID)
	if s.cache != nil {
		if err := s.cache.Delete(ctx, reportCacheKey(runID)); err != nil {
			s.logger.Warn("report cache delete failed", zap.String("run_id", runID), zap.Error(err))
		}
	}
	return nil
}

// Shutdown waits for in-flight runs to finish or the context to expire.
func (s *RunService) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *RunService) acquireSlot() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active >= s.cfg.MaxParallel {
		return appErrors.Clone(appErrors.ErrTooManyRuns, fmt.Sprintf("at most %d concurrent runs are allowed", s.cfg.MaxParallel))
	}
	s.active++
	return nil
}

func (s *RunService) releaseSlot() {
	s.mu.Lock()
	s.active--
	s.mu.Unlock()
}

func (s *RunService) buildOptions(req dto.StartRunRequest) genetic.Options {
	opts := genetic.Options{
		PopulationSize: s.cfg.PopulationSize,
		EliteSize:      s.cfg.EliteSize,
		MutationRate:   s.cfg.MutationRate,
		Generations:    s.cfg.Generations,
		Workers:        s.cfg.Workers,
		Seed:           s.cfg.Seed,
	}
	if req.PopulationSize != nil {
		opts.PopulationSize = *req.PopulationSize
	}
	if req.EliteSize != nil {
		opts.EliteSize = *req.EliteSize
	}
	if req.MutationRate != nil {
		opts.MutationRate = *req.MutationRate
	}
	if req.Generations != nil {
		opts.Generations = *req.Generations
	}
	if req.Seed != nil {
		opts.Seed = *req.Seed
	}
	return opts
}

// execute runs the engine to completion. It owns the run record state
// transitions and never inherits the request context: a run outlives the
// request that started it.
func (s *RunService) execute(runID string, catalog *models.Catalog, opts genetic.Options) {
	defer s.wg.Done()
	defer s.releaseSlot()

	started := time.Now()
	s.store.Update(runID, func(rec *runRecord) {
		rec.run.Status = models.RunStatusRunning
	})

	oracle := rating.NewCatalogOracle(catalog, rating.DefaultWeights)
	engine := genetic.NewEngine(catalog, oracle, catalog.Timeslots, len(catalog.Rooms), s.logger.With(zap.String("run_id", runID)))

	opts.Progress = func(generation int, best float64) {
		s.store.Update(runID, func(rec *runRecord) {
			rec.run.Generations = generation + 1
			rec.run.Score = best
		})
	}

	result, err := engine.Run(context.Background(), opts)
	if err != nil {
		s.finishFailed(runID, started, err)
		return
	}

	completedAt := time.Now().UTC()
	meta := runMeta(catalog, result)
	s.store.Update(runID, func(rec *runRecord) {
		rec.run.Status = models.RunStatusCompleted
		rec.run.Score = result.BestRating
		rec.run.Generations = result.Generations
		rec.run.StopReason = string(result.Reason)
		rec.run.Meta = meta
		rec.run.CompletedAt = &completedAt
		rec.best = result.Best
		rec.diag = result.Diagnostics
	})

	s.metrics.RunFinished(string(models.RunStatusCompleted), result.Generations, result.BestRating, time.Since(started))

	if s.repo != nil && s.tx != nil {
		if err := s.persistCompleted(runID); err != nil {
			s.logger.Error("failed to persist completed run", zap.String("run_id", runID), zap.Error(err))
		}
	}
}

func (s *RunService) finishFailed(runID string, started time.Time, err error) {
	completedAt := time.Now().UTC()
	s.store.Update(runID, func(rec *runRecord) {
		rec.run.Status = models.RunStatusFailed
		rec.run.CompletedAt = &completedAt
		rec.errMessage = err.Error()
	})
	s.metrics.RunFinished(string(models.RunStatusFailed), 0, 0, time.Since(started))
	s.logger.Error("scheduling run failed", zap.String("run_id", runID), zap.Error(err))
}

func (s *RunService) persistCreated(ctx context.Context, run *models.SchedulingRun) error {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	if err := s.repo.Create(ctx, tx, run); err != nil {
		_ = tx.Rollback()
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist run")
	}
	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit run")
	}
	return nil
}

func (s *RunService) persistCompleted(runID string) error {
	rec, ok := s.store.Get(runID)
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "scheduling run not found")
	}
	run := rec.snapshot()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	if err := s.repo.UpdateCompleted(ctx, tx, &run); err != nil {
		_ = tx.Rollback()
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update run")
	}
	if err := s.repo.InsertAssignments(ctx, tx, rec.assignments()); err != nil {
		_ = tx.Rollback()
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist assignments")
	}
	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit run results")
	}
	return nil
}

func (s *RunService) completedRecord(runID string) (*runRecord, error) {
	rec, ok := s.store.Get(runID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "scheduling run not found")
	}
	run := rec.snapshot()
	switch run.Status {
	case models.RunStatusCompleted:
		return rec, nil
	case models.RunStatusFailed:
		return nil, appErrors.Clone(appErrors.ErrConflict, "scheduling run failed")
	default:
		return nil, appErrors.Clone(appErrors.ErrRunNotReady, "")
	}
}

func buildCatalog(req dto.StartRunRequest) (*models.Catalog, error) {
	sessions := make([]models.Session, 0, len(req.Sessions))
	for _, payload := range req.Sessions {
		sessions = append(sessions, models.Session{
			Title:    payload.Title,
			Part:     payload.Part,
			Theme:    payload.Theme,
			Priority: payload.Priority,
			Speakers: payload.Speakers,
		})
	}
	rooms := make([]models.Room, 0, len(req.Rooms))
	for _, payload := range req.Rooms {
		rooms = append(rooms, models.Room{Name: payload.Name, Priority: payload.Priority})
	}
	return models.NewCatalog(sessions, rooms, req.Timeslots)
}

func runMeta(catalog *models.Catalog, result *genetic.Result) types.JSONText {
	payload := map[string]any{
		"diagnostics": result.Diagnostics,
		"timeslots":   catalog.Timeslots,
		"rooms":       len(catalog.Rooms),
		"sessions":    catalog.SessionCount(),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return types.JSONText(raw)
}

func toRunResponse(rec *runRecord) dto.RunResponse {
	run := rec.snapshot()
	resp := dto.RunResponse{
		RunID:       run.ID,
		Status:      run.Status,
		Score:       run.Score,
		Generations: run.Generations,
		StopReason:  run.StopReason,
		Seed:        run.Seed,
		Error:       rec.errSnapshot(),
		CreatedAt:   run.CreatedAt,
		CompletedAt: run.CompletedAt,
	}
	if run.Status == models.RunStatusCompleted {
		diag := rec.diagSnapshot()
		resp.Diagnostics = &diag
	}
	return resp
}

func reportCacheKey(runID string) string {
	return "report:" + runID
}

// --- Run retention ---

type runRecord struct {
	mu         sync.RWMutex
	run        models.SchedulingRun
	catalog    *models.Catalog
	best       *genetic.Grid
	diag       genetic.Rating
	errMessage string
}

func (r *runRecord) snapshot() models.SchedulingRun {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.run
}

func (r *runRecord) diagSnapshot() genetic.Rating {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.diag
}

func (r *runRecord) errSnapshot() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.errMessage
}

// assignments flattens the best grid into persistable rows.
func (r *runRecord) assignments() []models.RunAssignment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.best == nil {
		return nil
	}
	nmini := r.catalog.SessionCount()
	var rows []models.RunAssignment
	for slot := 0; slot < r.best.Slots(); slot++ {
		for room := 0; room < r.best.Rooms(); room++ {
			id := r.best.At(slot, room)
			if id >= nmini {
				continue
			}
			session := r.catalog.Sessions[id]
			rows = append(rows, models.RunAssignment{
				ID:       uuid.NewString(),
				RunID:    r.run.ID,
				Timeslot: slot,
				Room:     r.catalog.Rooms[room].Name,
				Session:  session.FullTitle(),
				Theme:    session.Theme,
				Priority: session.Priority,
			})
		}
	}
	return rows
}

type runStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]*runRecord
}

func newRunStore(ttl time.Duration) *runStore {
	return &runStore{
		ttl:   ttl,
		items: make(map[string]*runRecord),
	}
}

func (s *runStore) Save(rec *runRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[rec.run.ID] = rec
}

// Get returns a live record. Completed and failed runs expire RetainTTL after
// their completion time; pending and running records never expire.
func (s *runStore) Get(id string) (*runRecord, bool) {
	s.mu.RLock()
	rec, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.expired(rec) {
		s.Delete(id)
		return nil, false
	}
	return rec, true
}

func (s *runStore) List() []*runRecord {
	s.mu.RLock()
	records := make([]*runRecord, 0, len(s.items))
	for _, rec := range s.items {
		records = append(records, rec)
	}
	s.mu.RUnlock()

	live := records[:0]
	for _, rec := range records {
		if s.expired(rec) {
			s.Delete(rec.snapshot().ID)
			continue
		}
		live = append(live, rec)
	}
	return live
}

func (s *runStore) Update(id string, fn func(rec *runRecord)) {
	s.mu.RLock()
	rec, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return
	}
	rec.mu.Lock()
	fn(rec)
	rec.mu.Unlock()
}

func (s *runStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

func (s *runStore) expired(rec *runRecord) bool {
	run := rec.snapshot()
	if run.CompletedAt == nil {
		return false
	}
	return time.Since(*run.CompletedAt) > s.ttl
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/confsched/scheduler-api/internal/models"
)

// RunRepository persists scheduling runs and their best-schedule assignments.
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository constructs repository.
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a freshly started run.
func (r *RunRepository) Create(ctx context.Context, exec sqlx.ExtContext, run *models.SchedulingRun) error {
	if run == nil {
		return fmt.Errorf("run payload is nil")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = models.RunStatusPending
	}
	if len(run.Meta) == 0 {
		run.Meta = types.JSONText(`{}`)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	const query = `
INSERT INTO scheduling_runs (id, status, score, generations, stop_reason, seed, meta, created_at, completed_at)
VALUES (:id, :status, :score, :generations, :stop_reason, :seed, :meta, :created_at, :completed_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, run); err != nil {
		return fmt.Errorf("insert scheduling run: %w", err)
	}
	return nil
}

// UpdateCompleted writes the terminal state of a finished run.
func (r *RunRepository) UpdateCompleted(ctx context.Context, exec sqlx.ExtContext, run *models.SchedulingRun) error {
	if run == nil {
		return fmt.Errorf("run payload is nil")
	}
	if len(run.Meta) == 0 {
		run.Meta = types.JSONText(`{}`)
	}

	const query = `
UPDATE scheduling_runs
SET status = :status, score = :score, generations = :generations, stop_reason = :stop_reason,
    meta = :meta, completed_at = :completed_at
WHERE id = :id`
	result, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, run)
	if err != nil {
		return fmt.Errorf("update scheduling run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("scheduling run rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// InsertAssignments persists the occupied cells of a run's best schedule.
func (r *RunRepository) InsertAssignments(ctx context.Context, exec sqlx.ExtContext, assignments []models.RunAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	target := r.exec(exec)

	const query = `
INSERT INTO run_assignments (id, run_id, timeslot, room, session, theme, priority)
VALUES (:id, :run_id, :timeslot, :room, :session, :theme, :priority)`
	for i := range assignments {
		if assignments[i].ID == "" {
			assignments[i].ID = uuid.NewString()
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, assignments[i]); err != nil {
			return fmt.Errorf("insert run assignment: %w", err)
		}
	}
	return nil
}

// FindByID loads a run by its identifier.
func (r *RunRepository) FindByID(ctx context.Context, id string) (*models.SchedulingRun, error) {
	const query = `SELECT id, status, score, generations, stop_reason, seed, meta, created_at, completed_at
FROM scheduling_runs WHERE id = $1`
	var run models.SchedulingRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns the most recent runs, newest first.
func (r *RunRepository) List(ctx context.Context, limit int) ([]models.SchedulingRun, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT id, status, score, generations, stop_reason, seed, meta, created_at, completed_at
FROM scheduling_runs ORDER BY created_at DESC LIMIT $1`
	var runs []models.SchedulingRun
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("list scheduling runs: %w", err)
	}
	return runs, nil
}

// ListAssignments returns the stored best-schedule cells of a run ordered by
// timeslot and room.
func (r *RunRepository) ListAssignments(ctx context.Context, runID string) ([]models.RunAssignment, error) {
	const query = `SELECT id, run_id, timeslot, room, session, theme, priority
FROM run_assignments WHERE run_id = $1 ORDER BY timeslot ASC, room ASC`
	var assignments []models.RunAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, runID); err != nil {
		return nil, fmt.Errorf("list run assignments: %w", err)
	}
	return assignments, nil
}

// Delete removes a run and its assignments.
func (r *RunRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM run_assignments WHERE run_id = $1`, id); err != nil {
		return fmt.Errorf("delete run assignments: %w", err)
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM scheduling_runs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete scheduling run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("scheduling run rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// RunStatus represents lifecycle phases for scheduling runs.
type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
)

// SchedulingRun captures one genetic optimization run over a catalog.
type SchedulingRun struct {
	ID          string         `db:"id" json:"id"`
	Status      RunStatus      `db:"status" json:"status"`
	Score       float64        `db:"score" json:"score"`
	Generations int            `db:"generations" json:"generations"`
	StopReason  string         `db:"stop_reason" json:"stop_reason,omitempty"`
	Seed        int64          `db:"seed" json:"seed"`
	Meta        types.JSONText `db:"meta" json:"meta,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	CompletedAt *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
}

// RunAssignment is one (timeslot, room) cell of a run's best schedule,
// denormalized for reporting.
type RunAssignment struct {
	ID       string `db:"id" json:"id"`
	RunID    string `db:"run_id" json:"run_id"`
	Timeslot int    `db:"timeslot" json:"timeslot"`
	Room     string `db:"room" json:"room"`
	Session  string `db:"session" json:"session"`
	Theme    string `db:"theme" json:"theme"`
	Priority int    `db:"priority" json:"priority"`
}

package dto

import (
	"time"

	"github.com/confsched/scheduler-api/internal/genetic"
	"github.com/confsched/scheduler-api/internal/models"
)

// SessionPayload describes one minisymposium in a run request.
type SessionPayload struct {
	Title    string   `json:"title" validate:"required"`
	Part     int      `json:"part" validate:"omitempty,min=1"`
	Theme    string   `json:"theme" validate:"required"`
	Priority int      `json:"priority" validate:"min=0"`
	Speakers []string `json:"speakers"`
}

// RoomPayload describes one room in a run request.
type RoomPayload struct {
	Name     string `json:"name" validate:"required"`
	Priority int    `json:"priority" validate:"min=0"`
}

// StartRunRequest submits a catalog and optional parameter overrides for a
// new scheduling run. Absent overrides fall back to the configured defaults.
type StartRunRequest struct {
	Timeslots int              `json:"timeslots" validate:"required,min=1"`
	Sessions  []SessionPayload `json:"sessions" validate:"required,min=1,dive"`
	Rooms     []RoomPayload    `json:"rooms" validate:"required,min=1,dive"`

	PopulationSize *int     `json:"populationSize" validate:"omitempty,min=2,max=100000"`
	EliteSize      *int     `json:"eliteSize" validate:"omitempty,min=1"`
	MutationRate   *float64 `json:"mutationRate" validate:"omitempty,gte=0,lte=1"`
	Generations    *int     `json:"generations" validate:"omitempty,min=1,max=1000000"`
	Seed           *int64   `json:"seed"`
}

// RunResponse reports the state of a scheduling run.
type RunResponse struct {
	RunID       string           `json:"runId"`
	Status      models.RunStatus `json:"status"`
	Score       float64          `json:"score"`
	Generations int              `json:"generations"`
	StopReason  string           `json:"stopReason,omitempty"`
	Seed        int64            `json:"seed"`
	Diagnostics *genetic.Rating  `json:"diagnostics,omitempty"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
}

// SlotAssignment is one occupied cell of a best schedule.
type SlotAssignment struct {
	Timeslot int    `json:"timeslot"`
	Room     string `json:"room"`
	Session  string `json:"session"`
	Theme    string `json:"theme"`
	Priority int    `json:"priority"`
}

// BestScheduleResponse exposes the top-rated schedule of a completed run.
type BestScheduleResponse struct {
	RunID       string           `json:"runId"`
	Score       float64          `json:"score"`
	Assignments []SlotAssignment `json:"assignments"`
}

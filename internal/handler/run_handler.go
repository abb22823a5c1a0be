package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/confsched/scheduler-api/internal/dto"
	appErrors "github.com/confsched/scheduler-api/pkg/errors"
	"github.com/confsched/scheduler-api/pkg/response"
)

const maxSessions = 4096

type runScheduler interface {
	Start(ctx context.Context, req dto.StartRunRequest) (*dto.RunResponse, error)
	Get(ctx context.Context, runID string) (*dto.RunResponse, error)
	List(ctx context.Context) ([]dto.RunResponse, error)
	Best(ctx context.Context, runID string) (*dto.BestScheduleResponse, error)
	Report(ctx context.Context, runID, format string) ([]byte, string, error)
	Delete(ctx context.Context, runID string) error
}

// RunHandler exposes the scheduling run endpoints.
type RunHandler struct {
	service runScheduler
}

// NewRunHandler constructs the handler.
func NewRunHandler(svc runScheduler) *RunHandler {
	return &RunHandler{service: svc}
}

// Start accepts a catalog, launches an optimization run, and responds with
// the pending run state.
func (h *RunHandler) Start(c *gin.Context) {
	var req dto.StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid run payload"))
		return
	}
	if len(req.Sessions) > maxSessions {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "sessions exceeds supported limit"))
		return
	}
	run, err := h.service.Start(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, run)
}

// List returns all retained runs.
func (h *RunHandler) List(c *gin.Context) {
	runs, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs)
}

// Get returns the state of one run.
func (h *RunHandler) Get(c *gin.Context) {
	run, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run)
}

// Best returns the top-rated schedule of a completed run.
func (h *RunHandler) Best(c *gin.Context) {
	best, err := h.service.Best(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, best)
}

// Report streams the rendered schedule report. The format query parameter
// selects markdown (default), csv, or pdf.
func (h *RunHandler) Report(c *gin.Context) {
	payload, contentType, err := h.service.Report(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, payload)
}

// Delete removes a retained run.
func (h *RunHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

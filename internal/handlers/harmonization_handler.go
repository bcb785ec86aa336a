package handlers

import (
	"context"
	"errors"
	"net/http"

	"catalog-harmonization-service/internal/models"
	"catalog-harmonization-service/internal/services"
	"github.com/gin-gonic/gin"
)

// HarmonizationHandler handles cleaning step and change log endpoints
type HarmonizationHandler struct {
	steps *services.HarmonizationService
	logs  *services.ChangeLogService
}

// NewHarmonizationHandler creates a new harmonization handler
func NewHarmonizationHandler(steps *services.HarmonizationService, logs *services.ChangeLogService) *HarmonizationHandler {
	return &HarmonizationHandler{steps: steps, logs: logs}
}

// ListSteps returns the step catalog with per-step run state
func (h *HarmonizationHandler) ListSteps(c *gin.Context) {
	result, err := h.steps.ListSteps(c.Request.Context())
	if err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

// Preview dry-runs one step and samples its changes
func (h *HarmonizationHandler) Preview(c *gin.Context) {
	result, err := h.steps.Preview(c.Request.Context(), c.Param("step_id"))
	if err != nil {
		if errors.Is(err, services.ErrStepNotFound) {
			detail(c, http.StatusNotFound, "unknown step: "+c.Param("step_id"))
			return
		}
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

// Apply runs one step and records it in the change log
func (h *HarmonizationHandler) Apply(c *gin.Context) {
	result, err := h.steps.Apply(c.Request.Context(), c.Param("step_id"))
	if err != nil {
		if errors.Is(err, services.ErrStepNotFound) {
			detail(c, http.StatusNotFound, "unknown step: "+c.Param("step_id"))
			return
		}
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

// ApplyAll runs every step in catalog order, reporting per-step outcomes
func (h *HarmonizationHandler) ApplyAll(c *gin.Context) {
	c.JSON(http.StatusOK, h.steps.ApplyAll(c.Request.Context()))
}

// ListLogs returns the change log, newest first
func (h *HarmonizationHandler) ListLogs(c *gin.Context) {
	entries, err := h.logs.List(c.Request.Context(), queryInt(c, "limit", 50))
	if err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Undo restores the before-values of one log entry
func (h *HarmonizationHandler) Undo(c *gin.Context) {
	h.toggle(c, h.logs.Undo)
}

// Redo re-applies the after-values of a reverted log entry
func (h *HarmonizationHandler) Redo(c *gin.Context) {
	h.toggle(c, h.logs.Redo)
}

func (h *HarmonizationHandler) toggle(c *gin.Context, fn func(ctx context.Context, logID uint) (*models.UndoRedoResult, error)) {
	id, ok := paramID(c, "log_id")
	if !ok {
		return
	}
	result, err := fn(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLogNotFound):
			detail(c, http.StatusNotFound, "log entry not found")
		case errors.Is(err, services.ErrAlreadyReverted):
			detail(c, http.StatusConflict, "log entry is already undone")
		case errors.Is(err, services.ErrNotReverted):
			detail(c, http.StatusConflict, "log entry has not been undone")
		default:
			detail(c, http.StatusInternalServerError, err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

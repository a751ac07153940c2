package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/feichai0017/songplay-etl/internal/models"
	"github.com/feichai0017/songplay-etl/pkg/logger"
	"github.com/feichai0017/songplay-etl/pkg/queue"
)

type RunHandler struct {
	queue  queue.Queue
	logger logger.Logger
}

type RunRequest struct {
	Priority int               `json:"priority"`
	Metadata map[string]string `json:"metadata"`
}

type RunResponse struct {
	RunID     string `json:"runId"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
}

func NewRunHandler(q queue.Queue, log logger.Logger) *RunHandler {
	return &RunHandler{
		queue:  q,
		logger: log.Named("api"),
	}
}

// StartRun enqueues a pipeline run. The body is optional.
func (h *RunHandler) StartRun(c *gin.Context) {
	var req RunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.handleError(c, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	task := &queue.Task{
		ID:        uuid.New().String(),
		Priority:  req.Priority,
		Metadata:  req.Metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.queue.Enqueue(c.Request.Context(), task); err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to enqueue run", err)
		return
	}

	h.logger.Info("Run enqueued", logger.String("run_id", task.ID))
	c.JSON(http.StatusAccepted, RunResponse{
		RunID:     task.ID,
		Status:    string(models.StatusPending),
		CreatedAt: task.CreatedAt.Format(time.RFC3339),
	})
}

func (h *RunHandler) GetRun(c *gin.Context) {
	runID := c.Param("runId")
	if runID == "" {
		h.handleError(c, http.StatusBadRequest, "Run ID is required", nil)
		return
	}

	run, err := h.queue.GetRun(c.Request.Context(), runID)
	if err != nil {
		h.handleError(c, statusFor(err), "Failed to get run", err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *RunHandler) CancelRun(c *gin.Context) {
	runID := c.Param("runId")
	if runID == "" {
		h.handleError(c, http.StatusBadRequest, "Run ID is required", nil)
		return
	}

	if err := h.queue.CancelRun(c.Request.Context(), runID); err != nil {
		h.handleError(c, statusFor(err), "Failed to cancel run", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Run cancelled successfully",
		"runId":   runID,
	})
}

func statusFor(err error) int {
	if errors.Is(err, queue.ErrRunNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (h *RunHandler) handleError(c *gin.Context, status int, message string, err error) {
	h.logger.Error(message,
		logger.String("path", c.Request.URL.Path),
		logger.Error(err),
	)

	response := ErrorResponse{
		Message: message,
	}
	if err != nil {
		response.Error = err.Error()
	}

	c.JSON(status, response)
}

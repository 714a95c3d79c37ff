package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lordalex/botilito/internal/domain"
	"github.com/lordalex/botilito/internal/notify"
)

// TaskHandler handles registration and result retrieval of engine tasks.
type TaskHandler struct {
	synth  *notify.Synthesizer
	logger *zap.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(synth *notify.Synthesizer, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{synth: synth, logger: logger}
}

type registerTaskRequest struct {
	RemoteID string            `json:"remote_id" binding:"required"`
	Engine   domain.Engine     `json:"engine" binding:"required"`
	Metadata map[string]string `json:"metadata"`
}

// Register handles POST /api/v1/tasks
func (h *TaskHandler) Register(c *gin.Context) {
	var req registerTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}

	if err := h.synth.RegisterTask(req.RemoteID, req.Engine, req.Metadata); err != nil {
		if errors.Is(err, domain.ErrInvalidEngine) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Register task failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.Status(http.StatusAccepted)
}

// List handles GET /api/v1/tasks
func (h *TaskHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.synth.Tasks()})
}

// Result handles GET /api/v1/tasks/:id/result
func (h *TaskHandler) Result(c *gin.Context) {
	result, err := h.synth.TaskResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTaskNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		case errors.Is(err, domain.ErrNoCredential):
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Fetch task result failed", zap.Error(err), zap.String("task_id", c.Param("id")))
			c.JSON(http.StatusBadGateway, gin.H{"error": "Result fetch failed"})
		}
		return
	}

	c.Data(http.StatusOK, "application/json", result)
}

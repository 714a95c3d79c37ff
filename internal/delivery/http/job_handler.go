package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lordalex/botilito/internal/domain"
	"github.com/lordalex/botilito/internal/registry"
)

// JobHandler handles HTTP requests for job submission and inspection.
type JobHandler struct {
	reg    *registry.Registry
	logger *zap.Logger
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(reg *registry.Registry, logger *zap.Logger) *JobHandler {
	return &JobHandler{reg: reg, logger: logger}
}

// Submit handles POST /api/v1/jobs
func (h *JobHandler) Submit(c *gin.Context) {
	var req domain.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}

	id, err := h.reg.AddJob(c.Request.Context(), req.Type, req.Payload)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidJobType):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrRegistryClosed):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service shutting down"})
		default:
			h.logger.Error("Submit job failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusAccepted, domain.SubmitResponse{
		ID:     id,
		Status: string(domain.StatusPending),
	})
}

// List handles GET /api/v1/jobs
func (h *JobHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": h.reg.Jobs()})
}

// GetByID handles GET /api/v1/jobs/:id
func (h *JobHandler) GetByID(c *gin.Context) {
	job, err := h.reg.Job(c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		h.logger.Error("Get job failed", zap.Error(err), zap.String("job_id", c.Param("id")))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, job)
}

// Clear handles DELETE /api/v1/jobs
func (h *JobHandler) Clear(c *gin.Context) {
	h.reg.ClearJobs(c.Request.Context())
	c.Status(http.StatusNoContent)
}

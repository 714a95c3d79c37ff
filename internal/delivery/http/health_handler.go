package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lordalex/botilito/internal/registry"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	reg    *registry.Registry
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(reg *registry.Registry, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{reg: reg, logger: logger}
}

// Health handles GET /api/v1/health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"authenticated": h.reg.Credential() != "",
		"jobs":          len(h.reg.Jobs()),
	})
}

package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lordalex/botilito/internal/registry"
)

// SessionHandler manages the session credential used for remote calls.
type SessionHandler struct {
	reg    *registry.Registry
	logger *zap.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(reg *registry.Registry, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{reg: reg, logger: logger}
}

type sessionRequest struct {
	// Credential is the bearer token for the remote service; an empty
	// string revokes the current session.
	Credential string `json:"credential"`
}

// Set handles PUT /api/v1/session
func (h *SessionHandler) Set(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}

	h.reg.SetCredential(req.Credential)
	c.JSON(http.StatusOK, gin.H{"authenticated": req.Credential != ""})
}

package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lordalex/botilito/internal/domain"
	"github.com/lordalex/botilito/internal/notify"
)

// NotificationHandler exposes the synthesized notification list.
type NotificationHandler struct {
	synth  *notify.Synthesizer
	logger *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(synth *notify.Synthesizer, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{synth: synth, logger: logger}
}

// List handles GET /api/v1/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"notifications": h.synth.Notifications(),
		"unread_count":  h.synth.UnreadCount(),
	})
}

type markReadRequest struct {
	NotificationID string `json:"notification_id"`
	MarkAll        bool   `json:"mark_all"`
}

// MarkRead handles POST /api/v1/notifications/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}
	if !req.MarkAll && req.NotificationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "notification_id or mark_all is required"})
		return
	}

	var err error
	if req.MarkAll {
		err = h.synth.MarkAllRead(c.Request.Context())
	} else {
		err = h.synth.MarkRead(c.Request.Context(), req.NotificationID)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNoCredential) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Mark read failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Mark read failed"})
		return
	}

	c.Status(http.StatusNoContent)
}

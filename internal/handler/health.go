package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/healthmate/companion/internal/session"
)

// HealthHandler reports liveness and the session state
type HealthHandler struct {
	sessions *session.Store
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(sessions *session.Store) *HealthHandler {
	return &HealthHandler{sessions: sessions}
}

// GetHealth implements the health check endpoint
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"session": h.sessions.State(),
		"service": "healthmate-companion",
	})
}

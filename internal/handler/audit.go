package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/healthmate/companion/internal/audit"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500
)

// ActivityResponse lists the signed-in user's recent actions
type ActivityResponse struct {
	Entries []audit.Entry `json:"entries"`
}

// AuditHandler serves the activity log of the current user
type AuditHandler struct {
	audit *audit.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(auditLogger *audit.Logger) *AuditHandler {
	return &AuditHandler{audit: auditLogger}
}

// GetActivity returns the newest entries first. limit defaults to 50 and is capped at 500.
func (h *AuditHandler) GetActivity(c *gin.Context) {
	limit := defaultActivityLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "limit must be a positive integer",
			})
			return
		}
		limit = min(n, maxActivityLimit)
	}

	user := currentUser(c)
	c.JSON(http.StatusOK, ActivityResponse{Entries: h.audit.RecentFor(user.ID, limit)})
}

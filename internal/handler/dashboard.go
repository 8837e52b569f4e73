package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/healthmate/companion/internal/service"
)

// DashboardHandler serves the dashboard page
type DashboardHandler struct {
	service *service.DashboardService
	logger  *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(service *service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		logger:  logger,
	}
}

// GetDashboard returns counts and the most recent reports and vitals
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	summary, err := h.service.GetSummary(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to get dashboard summary", zap.Error(err))
		writeFetchError(c, err, "Failed to fetch data")
		return
	}

	c.JSON(http.StatusOK, summary)
}

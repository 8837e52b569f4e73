package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/healthmate/companion/internal/audit"
	"github.com/healthmate/companion/internal/service"
)

// ReportHandler serves the report viewer
type ReportHandler struct {
	service *service.ReportService
	audit   *audit.Logger
	logger  *zap.Logger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(service *service.ReportService, auditLogger *audit.Logger, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		audit:   auditLogger,
		logger:  logger,
	}
}

// GetReport returns the report with its analysis in the requested language. A missing
// report is answered with 404 and found=false.
func (h *ReportHandler) GetReport(c *gin.Context) {
	id := c.Param("id")

	view, err := h.service.Load(c.Request.Context(), id, service.ParseLanguage(c.Query("lang")))
	if err != nil {
		writeFetchError(c, err, "Failed to load report")
		return
	}

	if !view.Found {
		c.JSON(http.StatusNotFound, view)
		return
	}
	c.JSON(http.StatusOK, view)
}

// PostDeleteReport deletes the report when confirm=true is given
func (h *ReportHandler) PostDeleteReport(c *gin.Context) {
	id := c.Param("id")
	confirmed, _ := strconv.ParseBool(c.DefaultQuery("confirm", c.PostForm("confirm")))

	err := h.service.Delete(c.Request.Context(), id, confirmed)
	if errors.Is(err, service.ErrConfirmationRequired) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "CONFIRMATION_REQUIRED",
			Message: "Are you sure you want to delete this report?",
		})
		return
	}

	h.audit.Log(audit.Entry{
		UserID:     currentUser(c).ID,
		Action:     audit.ActionDelete,
		Resource:   audit.ResourceReport,
		ResourceID: id,
		Succeeded:  err == nil,
		IPAddress:  c.ClientIP(),
	})
	if err != nil {
		writeFetchError(c, err, "Failed to delete report")
		return
	}

	c.JSON(http.StatusOK, Notice{Message: "Report deleted successfully", Redirect: "/dashboard"})
}

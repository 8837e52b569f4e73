package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/healthmate/companion/internal/pdf"
	"github.com/healthmate/companion/internal/service"
)

// TimelineHandler serves the timeline and its PDF export
type TimelineHandler struct {
	service   *service.TimelineService
	generator *pdf.PDFGenerator
	logger    *zap.Logger
}

// NewTimelineHandler creates a new TimelineHandler
func NewTimelineHandler(service *service.TimelineService, generator *pdf.PDFGenerator, logger *zap.Logger) *TimelineHandler {
	return &TimelineHandler{
		service:   service,
		generator: generator,
		logger:    logger,
	}
}

// GetTimeline returns the month-grouped timeline for ?filter=all|reports|vitals
func (h *TimelineHandler) GetTimeline(c *gin.Context) {
	timeline, err := h.service.Build(c.Request.Context(), service.ParseFilter(c.Query("filter")))
	if err != nil {
		writeFetchError(c, err, "Failed to fetch timeline")
		return
	}

	c.JSON(http.StatusOK, timeline)
}

// GetTimelinePDF renders the same timeline as a PDF download
func (h *TimelineHandler) GetTimelinePDF(c *gin.Context) {
	filter := service.ParseFilter(c.Query("filter"))

	timeline, err := h.service.Build(c.Request.Context(), filter)
	if err != nil {
		writeFetchError(c, err, "Failed to fetch timeline")
		return
	}

	document, err := h.generator.Generate(&pdf.TimelineData{
		UserName: currentUser(c).Name,
		Filter:   timeline.Filter,
		Groups:   timeline.Groups,
	})
	if err != nil {
		h.logger.Error("failed to render timeline PDF", zap.Error(err))
		writeFetchError(c, err, "Failed to export timeline")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="healthmate-timeline.pdf"`)
	c.Data(http.StatusOK, "application/pdf", document)
}

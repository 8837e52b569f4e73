package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/healthmate/companion/internal/apiclient"
	"github.com/healthmate/companion/internal/audit"
	"github.com/healthmate/companion/internal/service"
	"github.com/healthmate/companion/pkg/model"
)

// UploadResponse is returned after the upload flow ran. Warning is set when the report
// was stored but its analysis failed; RetryPath regenerates it.
type UploadResponse struct {
	File      *model.FileRecord    `json:"file"`
	Insight   *service.InsightView `json:"insight"`
	Message   string               `json:"message"`
	Warning   string               `json:"warning,omitempty"`
	Redirect  string               `json:"redirect,omitempty"`
	RetryPath string               `json:"retryPath,omitempty"`
}

// UploadHandler serves the upload form, its preview and insight retries
type UploadHandler struct {
	service *service.UploadService
	audit   *audit.Logger
	logger  *zap.Logger
}

// NewUploadHandler creates a new UploadHandler
func NewUploadHandler(service *service.UploadService, auditLogger *audit.Logger, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		service: service,
		audit:   auditLogger,
		logger:  logger,
	}
}

// PostUpload stores the selected file and requests its analysis
func (h *UploadHandler) PostUpload(c *gin.Context) {
	user := currentUser(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Please select a file",
			Details: stringPtr(err.Error()),
		})
		return
	}

	content, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("failed to open uploaded file", zap.Error(err))
		writeError(c, err, "Upload failed")
		return
	}
	defer content.Close()

	mimeType := fileHeader.Header.Get("Content-Type")
	if fileHeader.Size > service.AdvisoryUploadLimit {
		h.logger.Info("file exceeds advisory size",
			zap.String("file_name", fileHeader.Filename),
			zap.Int64("size_bytes", fileHeader.Size),
		)
	}

	result, err := h.service.Upload(c.Request.Context(), service.UploadForm{
		FileName:   fileHeader.Filename,
		MimeType:   mimeType,
		Content:    content,
		FileType:   c.PostForm("fileType"),
		ReportDate: c.PostForm("reportDate"),
	})
	if err != nil {
		h.audit.Log(audit.Entry{
			UserID:    user.ID,
			Action:    audit.ActionUpload,
			Resource:  audit.ResourceReport,
			IPAddress: c.ClientIP(),
		})
		writeError(c, err, "Upload failed")
		return
	}

	h.audit.Log(audit.Entry{
		UserID:     user.ID,
		Action:     audit.ActionUpload,
		Resource:   audit.ResourceReport,
		ResourceID: result.File.ID,
		Succeeded:  true,
		IPAddress:  c.ClientIP(),
	})
	h.audit.Log(audit.Entry{
		UserID:     user.ID,
		Action:     audit.ActionGenerateInsight,
		Resource:   audit.ResourceInsight,
		ResourceID: result.File.ID,
		Succeeded:  result.Complete(),
		IPAddress:  c.ClientIP(),
	})

	response := UploadResponse{File: result.File}
	if result.Complete() {
		response.Message = "Report uploaded and analysed successfully!"
		response.Insight = service.NewInsightView(result.Insight, service.LanguageEnglish)
		response.Redirect = "/report/" + result.File.ID
	} else {
		response.Message = "Report uploaded"
		response.Warning = "Analysis failed: " + apiclient.MessageOf(result.InsightErr, "Failed to generate insight")
		response.RetryPath = "/report/" + result.File.ID + "/insight"
	}

	c.JSON(http.StatusCreated, response)
}

// PostPreview renders the selected file locally. Nothing is sent to the backend.
func (h *UploadHandler) PostPreview(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Please select a file",
			Details: stringPtr(err.Error()),
		})
		return
	}

	content, err := fileHeader.Open()
	if err != nil {
		writeError(c, err, "Failed to read file")
		return
	}
	defer content.Close()

	data, err := io.ReadAll(content)
	if err != nil {
		writeError(c, err, "Failed to read file")
		return
	}

	preview, err := service.PreviewFile(fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data)
	if err != nil {
		if errors.Is(err, service.ErrUnreadableImage) {
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
				Code:    "UNREADABLE_IMAGE",
				Message: "Could not preview this image",
				Details: stringPtr(err.Error()),
			})
			return
		}
		writeError(c, err, "Failed to read file")
		return
	}

	c.JSON(http.StatusOK, preview)
}

// PostRetryInsight regenerates the analysis of a stored report
func (h *UploadHandler) PostRetryInsight(c *gin.Context) {
	id := c.Param("id")
	user := currentUser(c)

	insight, err := h.service.RetryInsight(c.Request.Context(), id)
	h.audit.Log(audit.Entry{
		UserID:     user.ID,
		Action:     audit.ActionGenerateInsight,
		Resource:   audit.ResourceInsight,
		ResourceID: id,
		Succeeded:  err == nil,
		IPAddress:  c.ClientIP(),
	})
	if err != nil {
		writeError(c, err, "Failed to generate insight")
		return
	}

	c.JSON(http.StatusOK, service.NewInsightView(insight, service.ParseLanguage(c.Query("lang"))))
}

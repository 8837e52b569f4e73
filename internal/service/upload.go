package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
	"go.uber.org/zap"

	"github.com/healthmate/companion/internal/apiclient"
	"github.com/healthmate/companion/pkg/model"
)

// AdvisoryUploadLimit is the size the upload form recommends. It is never enforced.
const AdvisoryUploadLimit = 10 << 20

// ErrUnreadableImage is returned when an image preview cannot be decoded
var ErrUnreadableImage = errors.New("image could not be decoded")

// UploadForm is a report file and its metadata as submitted
type UploadForm struct {
	FileName   string
	MimeType   string
	Content    io.Reader
	FileType   string
	ReportDate string
}

// UploadResult describes a finished upload. InsightErr is set when the file was stored
// but the analysis could not be generated; the file is kept.
type UploadResult struct {
	File       *model.FileRecord
	Insight    *model.Insight
	InsightErr error
}

// Complete reports whether both steps succeeded
func (r *UploadResult) Complete() bool {
	return r.InsightErr == nil
}

// Preview is the local rendering of a selected file
type Preview struct {
	FileName      string `json:"fileName"`
	MimeType      string `json:"mimeType"`
	SizeBytes     int    `json:"sizeBytes"`
	OverAdvisory  bool   `json:"overAdvisoryLimit"`
	IsImage       bool   `json:"isImage"`
	DataURL       string `json:"dataUrl,omitempty"`
	Width         int    `json:"width,omitempty"`
	Height        int    `json:"height,omitempty"`
	DecodedFormat string `json:"format,omitempty"`
}

// UploadService runs the upload-then-analyse flow
type UploadService struct {
	files    FileClient
	insights InsightClient
	logger   *zap.Logger
	now      func() time.Time
}

// NewUploadService creates a new UploadService
func NewUploadService(files FileClient, insights InsightClient, logger *zap.Logger) *UploadService {
	return &UploadService{
		files:    files,
		insights: insights,
		logger:   logger,
		now:      time.Now,
	}
}

// Upload stores the file and then requests its analysis. A failed upload aborts the
// flow. A failed analysis is reported in the result and does not undo the upload.
func (s *UploadService) Upload(ctx context.Context, form UploadForm) (*UploadResult, error) {
	req, err := s.uploadRequest(form)
	if err != nil {
		return nil, err
	}

	file, err := s.files.Upload(ctx, req)
	if err != nil {
		s.logger.Error("failed to upload report",
			zap.String("file_name", form.FileName),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to upload report: %w", err)
	}

	s.logger.Info("report uploaded",
		zap.String("file_id", file.ID),
		zap.String("file_type", string(req.FileType)),
	)

	result := &UploadResult{File: file}

	insight, err := s.insights.Generate(ctx, file.ID)
	if err != nil {
		s.logger.Warn("insight generation failed, report kept without analysis",
			zap.String("file_id", file.ID),
			zap.Error(err),
		)
		result.InsightErr = fmt.Errorf("failed to generate insight: %w", err)
		return result, nil
	}

	result.Insight = insight
	s.logger.Info("insight generated", zap.String("file_id", file.ID))
	return result, nil
}

// RetryInsight requests analysis for a file that is already stored
func (s *UploadService) RetryInsight(ctx context.Context, fileID string) (*model.Insight, error) {
	if strings.TrimSpace(fileID) == "" {
		return nil, fmt.Errorf("%w: file id is required", ErrValidation)
	}

	insight, err := s.insights.Generate(ctx, fileID)
	if err != nil {
		s.logger.Error("insight regeneration failed", zap.String("file_id", fileID), zap.Error(err))
		return nil, fmt.Errorf("failed to generate insight: %w", err)
	}
	return insight, nil
}

func (s *UploadService) uploadRequest(form UploadForm) (apiclient.UploadRequest, error) {
	if form.Content == nil {
		return apiclient.UploadRequest{}, fmt.Errorf("%w: please select a file", ErrValidation)
	}

	fileType := model.FileType(strings.TrimSpace(form.FileType))
	if fileType == "" {
		fileType = model.FileTypeBloodTest
	}
	if !fileType.Valid() {
		return apiclient.UploadRequest{}, fmt.Errorf("%w: unknown file type %q", ErrValidation, form.FileType)
	}

	reportDate := s.now().UTC().Truncate(24 * time.Hour)
	if strings.TrimSpace(form.ReportDate) != "" {
		parsed, err := time.Parse(openapi_types.DateFormat, strings.TrimSpace(form.ReportDate))
		if err != nil {
			return apiclient.UploadRequest{}, fmt.Errorf("%w: reportDate must be YYYY-MM-DD", ErrValidation)
		}
		reportDate = parsed
	}

	return apiclient.UploadRequest{
		FileName:   form.FileName,
		MimeType:   form.MimeType,
		Content:    form.Content,
		FileType:   fileType,
		ReportDate: openapi_types.Date{Time: reportDate},
	}, nil
}

// PreviewFile renders an image as a data URL with its dimensions. Other files get
// size information only. The uploaded payload is unaffected.
func PreviewFile(fileName, mimeType string, data []byte) (*Preview, error) {
	preview := &Preview{
		FileName:     fileName,
		MimeType:     mimeType,
		SizeBytes:    len(data),
		OverAdvisory: len(data) > AdvisoryUploadLimit,
	}

	if !strings.HasPrefix(mimeType, "image/") {
		return preview, nil
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}

	preview.IsImage = true
	preview.Width = cfg.Width
	preview.Height = cfg.Height
	preview.DecodedFormat = format
	preview.DataURL = "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
	return preview, nil
}

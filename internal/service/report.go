package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/healthmate/companion/pkg/model"
)

// Language selects the insight summary to display
type Language string

const (
	LanguageEnglish   Language = "english"
	LanguageRomanUrdu Language = "romanUrdu"
)

// ParseLanguage accepts "romanUrdu" and "urdu"; anything else is English
func ParseLanguage(s string) Language {
	switch strings.ToLower(s) {
	case "romanurdu", "urdu":
		return LanguageRomanUrdu
	default:
		return LanguageEnglish
	}
}

// SeverityTone is the display color of an abnormal value
func SeverityTone(s model.Severity) string {
	switch s.Normalize() {
	case model.SeverityCritical:
		return "red"
	case model.SeverityHigh:
		return "orange"
	case model.SeverityLow:
		return "yellow"
	default:
		return "gray"
	}
}

const longDate = "January 2, 2006"

// FileView is the metadata panel of the report viewer
type FileView struct {
	ID         string         `json:"id"`
	FileName   string         `json:"fileName"`
	FileType   model.FileType `json:"fileType"`
	TypeLabel  string         `json:"typeLabel"`
	FileURL    string         `json:"fileUrl"`
	MimeType   string         `json:"mimeType"`
	IsPDF      bool           `json:"isPdf"`
	ReportDate string         `json:"reportDate"`
	UploadedOn string         `json:"uploadedOn"`
}

// AbnormalValueView is an abnormal value with its display tone
type AbnormalValueView struct {
	Parameter   string         `json:"parameter"`
	Value       string         `json:"value"`
	NormalRange string         `json:"normalRange"`
	Severity    model.Severity `json:"severity"`
	Tone        string         `json:"tone"`
}

// InsightView is the analysis panel of the report viewer
type InsightView struct {
	Summary             string                     `json:"summary"`
	Summaries           model.Summary              `json:"summaries"`
	AbnormalValues      []AbnormalValueView        `json:"abnormalValues"`
	DoctorQuestions     []string                   `json:"doctorQuestions"`
	FoodRecommendations *model.FoodRecommendations `json:"foodRecommendations,omitempty"`
	HomeRemedies        []string                   `json:"homeRemedies"`
	Disclaimer          string                     `json:"disclaimer"`
}

// ReportView is the rendered report page. Found is false for a missing report, which is
// a normal outcome rather than an error.
type ReportView struct {
	Found             bool         `json:"found"`
	Language          Language     `json:"language"`
	File              *FileView    `json:"file,omitempty"`
	AnalysisAvailable bool         `json:"analysisAvailable"`
	Insight           *InsightView `json:"insight,omitempty"`
}

// WithLanguage switches the displayed summary without fetching anything
func (v *ReportView) WithLanguage(lang Language) *ReportView {
	out := *v
	out.Language = lang
	if v.Insight != nil {
		insight := *v.Insight
		insight.Summary = summaryIn(insight.Summaries, lang)
		out.Insight = &insight
	}
	return &out
}

func summaryIn(s model.Summary, lang Language) string {
	if lang == LanguageRomanUrdu {
		return s.RomanUrdu
	}
	return s.English
}

// NewFileView renders a FileRecord for display
func NewFileView(f *model.FileRecord) *FileView {
	view := &FileView{
		ID:        f.ID,
		FileName:  f.FileName,
		FileType:  f.FileType,
		TypeLabel: f.FileType.Label(),
		FileURL:   f.FileURL,
		MimeType:  f.MimeType,
		IsPDF:     f.IsPDF(),
	}
	if !f.ReportDate.IsZero() {
		view.ReportDate = f.ReportDate.UTC().Format(longDate)
	}
	if !f.UploadedAt.IsZero() {
		view.UploadedOn = f.UploadedAt.UTC().Format(longDate)
	}
	return view
}

// NewInsightView renders an Insight in the given language
func NewInsightView(in *model.Insight, lang Language) *InsightView {
	view := &InsightView{
		Summary:             summaryIn(in.Summary, lang),
		Summaries:           in.Summary,
		AbnormalValues:      make([]AbnormalValueView, 0, len(in.AbnormalValues)),
		DoctorQuestions:     nonNil(in.DoctorQuestions),
		FoodRecommendations: in.FoodRecommendations,
		HomeRemedies:        nonNil(in.HomeRemedies),
		Disclaimer:          in.Disclaimer,
	}
	for _, av := range in.AbnormalValues {
		severity := av.Severity.Normalize()
		view.AbnormalValues = append(view.AbnormalValues, AbnormalValueView{
			Parameter:   av.Parameter,
			Value:       av.Value,
			NormalRange: av.NormalRange,
			Severity:    severity,
			Tone:        SeverityTone(severity),
		})
	}
	return view
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ReportService loads and deletes reports for the viewer
type ReportService struct {
	files    FileClient
	insights InsightClient
	logger   *zap.Logger
}

// NewReportService creates a new ReportService
func NewReportService(files FileClient, insights InsightClient, logger *zap.Logger) *ReportService {
	return &ReportService{
		files:    files,
		insights: insights,
		logger:   logger,
	}
}

// Load fetches the file and its insight concurrently. A failed or empty file fetch
// yields a not-found view; a failed or empty insight fetch yields a view without
// analysis. The only error returned is ctx's.
func (s *ReportService) Load(ctx context.Context, id string, lang Language) (*ReportView, error) {
	var (
		file       *model.FileRecord
		insight    *model.Insight
		fileErr    error
		insightErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		file, fileErr = s.files.Get(ctx, id)
		return nil
	})
	g.Go(func() error {
		insight, insightErr = s.insights.GetByFile(ctx, id)
		return nil
	})
	g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	view := &ReportView{Language: lang}

	if fileErr != nil || file == nil {
		s.logger.Info("report not found", zap.String("file_id", id), zap.Error(fileErr))
		return view, nil
	}

	view.Found = true
	view.File = NewFileView(file)

	if insightErr != nil || insight == nil {
		s.logger.Info("no analysis available for report", zap.String("file_id", id), zap.Error(insightErr))
		return view, nil
	}

	view.AnalysisAvailable = true
	view.Insight = NewInsightView(insight, lang)
	return view, nil
}

// Delete removes a report. Without confirmation nothing is sent to the backend.
func (s *ReportService) Delete(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}

	if err := s.files.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete report", zap.String("file_id", id), zap.Error(err))
		return fmt.Errorf("failed to delete report: %w", err)
	}

	s.logger.Info("report deleted", zap.String("file_id", id))
	return nil
}

package pdf

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"

	"github.com/healthmate/companion/internal/service"
	"github.com/healthmate/companion/pkg/model"
)

// PDFGenerator renders the health timeline as a printable document
type PDFGenerator struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewPDFGenerator creates a new PDFGenerator
func NewPDFGenerator(logger *zap.Logger) *PDFGenerator {
	return &PDFGenerator{
		logger: logger,
		now:    time.Now,
	}
}

// TimelineData contains everything the export needs
type TimelineData struct {
	UserName string
	Filter   service.Filter
	Groups   []service.MonthGroup
}

// Generate creates a PDF of the grouped timeline
func (g *PDFGenerator) Generate(data *TimelineData) ([]byte, error) {
	g.logger.Info("generating timeline PDF",
		zap.String("user_name", data.UserName),
		zap.String("filter", string(data.Filter)),
		zap.Int("groups", len(data.Groups)),
	)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()

	g.addTitle(pdf, tr, data)
	g.addBloodPressureSummary(pdf, data.Groups)

	if len(data.Groups) == 0 {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 8, "No health records found.", "", 1, "L", false, 0, "")
	}
	for _, group := range data.Groups {
		g.addMonth(pdf, tr, group)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		g.logger.Error("failed to generate PDF", zap.Error(err))
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	g.logger.Info("timeline PDF generated successfully",
		zap.Int("size_bytes", buf.Len()),
	)

	return buf.Bytes(), nil
}

func (g *PDFGenerator) addTitle(pdf *gofpdf.Fpdf, tr func(string) string, data *TimelineData) {
	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 10, "Health Timeline", "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("Patient: %s", data.UserName)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Showing: %s", showing(data.Filter)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Generated: %s", g.now().Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(10)
}

func showing(f service.Filter) string {
	switch f {
	case service.FilterReports:
		return "reports"
	case service.FilterVitals:
		return "vitals"
	default:
		return "all records"
	}
}

// addSectionHeader adds a section header
func (g *PDFGenerator) addSectionHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(0, 10, title, "", 1, "L", true, 0, "")
	pdf.Ln(3)
	pdf.SetFont("Arial", "", 10)
}

// addBloodPressureSummary averages every blood pressure reading in the export
func (g *PDFGenerator) addBloodPressureSummary(pdf *gofpdf.Fpdf, groups []service.MonthGroup) {
	var totalSystolic, totalDiastolic float64
	count := 0
	for _, group := range groups {
		for _, item := range group.Items {
			if item.Kind != model.KindVital || item.Vital.BloodPressure == nil {
				continue
			}
			totalSystolic += item.Vital.BloodPressure.Systolic
			totalDiastolic += item.Vital.BloodPressure.Diastolic
			count++
		}
	}
	if count == 0 {
		return
	}

	g.addSectionHeader(pdf, "Blood Pressure")
	pdf.CellFormat(0, 6, fmt.Sprintf("Average: %.0f/%.0f mmHg", totalSystolic/float64(count), totalDiastolic/float64(count)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Total readings: %d", count), "", 1, "L", false, 0, "")
	pdf.Ln(5)
}

func (g *PDFGenerator) addMonth(pdf *gofpdf.Fpdf, tr func(string) string, group service.MonthGroup) {
	g.addSectionHeader(pdf, group.Month)

	for _, item := range group.Items {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, item.Date().UTC().Format("January 2, 2006"), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)

		switch item.Kind {
		case model.KindReport:
			g.addReport(pdf, tr, item.Report)
		case model.KindVital:
			g.addVitals(pdf, tr, item.Vital)
		}
		pdf.Ln(2)
	}
	pdf.Ln(5)
}

func (g *PDFGenerator) addReport(pdf *gofpdf.Fpdf, tr func(string) string, f *model.FileRecord) {
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("  Report: %s (%s)", f.FileName, f.FileType.Label())), "", 1, "L", false, 0, "")
}

func (g *PDFGenerator) addVitals(pdf *gofpdf.Fpdf, tr func(string) string, v *model.VitalsRecord) {
	line := func(format string, args ...any) {
		pdf.CellFormat(0, 5, tr(fmt.Sprintf(format, args...)), "", 1, "L", false, 0, "")
	}

	line("  Vitals")
	if v.BloodPressure != nil {
		line("    Blood Pressure: %s/%s mmHg", num(v.BloodPressure.Systolic), num(v.BloodPressure.Diastolic))
	}
	if v.BloodSugar != nil {
		line("    Blood Sugar: %s %s (%s)", num(v.BloodSugar.Value), v.BloodSugar.Unit, v.BloodSugar.TestType)
	}
	if v.Weight != nil {
		line("    Weight: %s %s", num(v.Weight.Value), v.Weight.Unit)
	}
	if v.HeartRate != nil {
		line("    Heart Rate: %s bpm", num(*v.HeartRate))
	}
	if v.Temperature != nil {
		line("    Temperature: %s %s", num(v.Temperature.Value), v.Temperature.Unit)
	}
	if v.OxygenLevel != nil {
		line("    Oxygen Level: %s%%", num(*v.OxygenLevel))
	}
	if v.Notes != "" {
		line("    Notes: %s", v.Notes)
	}
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

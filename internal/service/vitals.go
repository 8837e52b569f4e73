package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
	"go.uber.org/zap"

	"github.com/healthmate/companion/pkg/model"
)

// Default units preselected by the vitals form
const (
	DefaultSugarUnit       = "mg/dL"
	DefaultSugarTestType   = "random"
	DefaultWeightUnit      = "kg"
	DefaultTemperatureUnit = "celsius"
)

// BloodPressureDraft is the raw text of the blood pressure inputs
type BloodPressureDraft struct {
	Systolic  string `json:"systolic"`
	Diastolic string `json:"diastolic"`
}

// BloodSugarDraft is the raw text of the blood sugar inputs
type BloodSugarDraft struct {
	Value    string `json:"value"`
	Unit     string `json:"unit"`
	TestType string `json:"testType"`
}

// MeasurementDraft is a value input with its unit selector
type MeasurementDraft struct {
	Value string `json:"value"`
	Unit  string `json:"unit"`
}

// VitalsDraft is the vitals form exactly as typed: every field is text and may be blank
type VitalsDraft struct {
	Date          string             `json:"date"`
	BloodPressure BloodPressureDraft `json:"bloodPressure"`
	BloodSugar    BloodSugarDraft    `json:"bloodSugar"`
	Weight        MeasurementDraft   `json:"weight"`
	HeartRate     string             `json:"heartRate"`
	Temperature   MeasurementDraft   `json:"temperature"`
	OxygenLevel   string             `json:"oxygenLevel"`
	Notes         string             `json:"notes"`
}

// NormalizeVitals turns a draft into the payload sent to the backend.
//
// The date is always included; a blank date means today. A measurement group is sent
// only when its required inputs are filled (both pressures, or the value), and then
// whole: numbers coerced, units passed through. A group whose number does not parse
// is dropped like a blank one.
func NormalizeVitals(draft VitalsDraft, today time.Time) (model.NewVitals, error) {
	date := today.UTC().Truncate(24 * time.Hour)
	if strings.TrimSpace(draft.Date) != "" {
		parsed, err := time.Parse(openapi_types.DateFormat, strings.TrimSpace(draft.Date))
		if err != nil {
			return model.NewVitals{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
		}
		date = parsed
	}

	out := model.NewVitals{Date: openapi_types.Date{Time: date}}

	if systolic, ok := number(draft.BloodPressure.Systolic); ok {
		if diastolic, ok := number(draft.BloodPressure.Diastolic); ok {
			out.BloodPressure = &model.BloodPressure{Systolic: systolic, Diastolic: diastolic}
		}
	}

	if value, ok := number(draft.BloodSugar.Value); ok {
		out.BloodSugar = &model.BloodSugar{
			Value:    value,
			Unit:     orDefault(draft.BloodSugar.Unit, DefaultSugarUnit),
			TestType: orDefault(draft.BloodSugar.TestType, DefaultSugarTestType),
		}
	}

	if value, ok := number(draft.Weight.Value); ok {
		out.Weight = &model.Measurement{Value: value, Unit: orDefault(draft.Weight.Unit, DefaultWeightUnit)}
	}

	if value, ok := number(draft.HeartRate); ok {
		out.HeartRate = &value
	}

	if value, ok := number(draft.Temperature.Value); ok {
		out.Temperature = &model.Measurement{Value: value, Unit: orDefault(draft.Temperature.Unit, DefaultTemperatureUnit)}
	}

	if value, ok := number(draft.OxygenLevel); ok {
		out.OxygenLevel = &value
	}

	if strings.TrimSpace(draft.Notes) != "" {
		notes := draft.Notes
		out.Notes = &notes
	}

	return out, nil
}

// number parses a non-blank finite number
func number(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// VitalsService submits the add-vitals form
type VitalsService struct {
	client VitalsClient
	logger *zap.Logger
	now    func() time.Time
}

// NewVitalsService creates a new VitalsService
func NewVitalsService(client VitalsClient, logger *zap.Logger) *VitalsService {
	return &VitalsService{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// Add normalizes the draft and creates the record. The draft is never modified.
func (s *VitalsService) Add(ctx context.Context, draft VitalsDraft) (*model.VitalsRecord, error) {
	payload, err := NormalizeVitals(draft, s.now())
	if err != nil {
		return nil, err
	}

	record, err := s.client.Add(ctx, payload)
	if err != nil {
		s.logger.Error("failed to add vitals", zap.Error(err))
		return nil, fmt.Errorf("failed to add vitals: %w", err)
	}

	s.logger.Info("vitals added",
		zap.String("vitals_id", record.ID),
		zap.String("date", payload.Date.Format(openapi_types.DateFormat)),
	)
	return record, nil
}

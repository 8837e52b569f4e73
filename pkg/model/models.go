package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// User is the authenticated account as returned by the backend
type User struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	Gender      string `json:"gender,omitempty"`
}

// Session holds the authenticated user and the bearer token issued for it
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// FileType classifies an uploaded medical document
type FileType string

const (
	FileTypeBloodTest    FileType = "blood_test"
	FileTypeXRay         FileType = "xray"
	FileTypeUltrasound   FileType = "ultrasound"
	FileTypePrescription FileType = "prescription"
	FileTypeMRI          FileType = "mri"
	FileTypeCTScan       FileType = "ct_scan"
	FileTypeOther        FileType = "other"
)

// FileTypes lists every accepted file type in display order
var FileTypes = []FileType{
	FileTypeBloodTest,
	FileTypeXRay,
	FileTypeUltrasound,
	FileTypePrescription,
	FileTypeMRI,
	FileTypeCTScan,
	FileTypeOther,
}

// Valid reports whether t is one of the known file types
func (t FileType) Valid() bool {
	for _, known := range FileTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Label renders the type for display, e.g. "blood_test" becomes "BLOOD TEST".
// Only the first underscore is replaced.
func (t FileType) Label() string {
	return strings.ToUpper(strings.Replace(string(t), "_", " ", 1))
}

// FileRecord represents an uploaded medical report
type FileRecord struct {
	ID         string    `json:"_id"`
	FileName   string    `json:"fileName"`
	FileType   FileType  `json:"fileType"`
	FileURL    string    `json:"fileUrl"`
	MimeType   string    `json:"mimeType"`
	ReportDate Timestamp `json:"reportDate"`
	UploadedAt Timestamp `json:"uploadedAt"`
}

// IsPDF reports whether the stored document is a PDF
func (f FileRecord) IsPDF() bool {
	return f.MimeType == "application/pdf"
}

// BloodPressure is a systolic/diastolic pair in mmHg
type BloodPressure struct {
	Systolic  float64 `json:"systolic"`
	Diastolic float64 `json:"diastolic"`
}

// BloodSugar is a glucose reading
type BloodSugar struct {
	Value    float64 `json:"value"`
	Unit     string  `json:"unit"`
	TestType string  `json:"testType"`
}

// Measurement is a value with its unit
type Measurement struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// VitalsRecord is a manually entered set of measurements for one date
type VitalsRecord struct {
	ID            string         `json:"_id"`
	Date          Timestamp      `json:"date"`
	BloodPressure *BloodPressure `json:"bloodPressure,omitempty"`
	BloodSugar    *BloodSugar    `json:"bloodSugar,omitempty"`
	Weight        *Measurement   `json:"weight,omitempty"`
	HeartRate     *float64       `json:"heartRate,omitempty"`
	Temperature   *Measurement   `json:"temperature,omitempty"`
	OxygenLevel   *float64       `json:"oxygenLevel,omitempty"`
	Notes         string         `json:"notes,omitempty"`
}

// Severity grades an abnormal lab value
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityLow      Severity = "low"
	SeverityDefault  Severity = "default"
)

// Normalize maps unknown severities to SeverityDefault
func (s Severity) Normalize() Severity {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityLow:
		return s
	default:
		return SeverityDefault
	}
}

// Summary is the bilingual insight summary
type Summary struct {
	English   string `json:"english"`
	RomanUrdu string `json:"romanUrdu"`
}

// AbnormalValue is a lab parameter outside its normal range
type AbnormalValue struct {
	Parameter   string   `json:"parameter"`
	Value       string   `json:"value"`
	NormalRange string   `json:"normalRange"`
	Severity    Severity `json:"severity"`
}

// FoodRecommendations lists foods to avoid and to prefer
type FoodRecommendations struct {
	Avoid       []string `json:"avoid"`
	Recommended []string `json:"recommended"`
}

// Insight is the AI-generated commentary on a FileRecord
type Insight struct {
	ID                  string               `json:"_id,omitempty"`
	FileID              string               `json:"fileId"`
	Summary             Summary              `json:"summary"`
	AbnormalValues      []AbnormalValue      `json:"abnormalValues"`
	DoctorQuestions     []string             `json:"doctorQuestions"`
	FoodRecommendations *FoodRecommendations `json:"foodRecommendations,omitempty"`
	HomeRemedies        []string             `json:"homeRemedies"`
	Disclaimer          string               `json:"disclaimer"`
}

// Timestamp decodes backend dates sent either as YYYY-MM-DD or as RFC 3339 timestamps.
// Values are kept in UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses any of the accepted backend date layouts
func ParseTimestamp(s string) (Timestamp, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t.UTC()}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognized date %q", s)
}

// MustTimestamp is ParseTimestamp for literals known to be valid
func MustTimestamp(s string) Timestamp {
	ts, err := ParseTimestamp(s)
	if err != nil {
		panic(err)
	}
	return ts
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON implements json.Marshaler
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

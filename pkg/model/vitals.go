package model

import (
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// NewVitals is the payload sent to create or update a VitalsRecord. Only populated
// measurement groups are serialized.
type NewVitals struct {
	Date          openapi_types.Date `json:"date"`
	BloodPressure *BloodPressure     `json:"bloodPressure,omitempty"`
	BloodSugar    *BloodSugar        `json:"bloodSugar,omitempty"`
	Weight        *Measurement       `json:"weight,omitempty"`
	HeartRate     *float64           `json:"heartRate,omitempty"`
	Temperature   *Measurement       `json:"temperature,omitempty"`
	OxygenLevel   *float64           `json:"oxygenLevel,omitempty"`
	Notes         *string            `json:"notes,omitempty"`
}

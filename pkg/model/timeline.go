package model

import (
	"encoding/json"
	"time"
)

// Kind tags a TimelineItem variant
type Kind string

const (
	KindReport Kind = "report"
	KindVital  Kind = "vital"
)

// TimelineItem is either a FileRecord or a VitalsRecord. Exactly one of Report and
// Vital is set, matching Kind.
type TimelineItem struct {
	Kind   Kind
	Report *FileRecord
	Vital  *VitalsRecord
}

// ReportItem wraps a FileRecord as a timeline item
func ReportItem(f FileRecord) TimelineItem {
	return TimelineItem{Kind: KindReport, Report: &f}
}

// VitalItem wraps a VitalsRecord as a timeline item
func VitalItem(v VitalsRecord) TimelineItem {
	return TimelineItem{Kind: KindVital, Vital: &v}
}

// Date returns the sortable date of the item: reportDate for reports, date for vitals
func (i TimelineItem) Date() time.Time {
	switch i.Kind {
	case KindReport:
		return i.Report.ReportDate.Time
	case KindVital:
		return i.Vital.Date.Time
	}
	return time.Time{}
}

// ID returns the backend id of the wrapped record
func (i TimelineItem) ID() string {
	if i.Kind == KindReport {
		return i.Report.ID
	}
	return i.Vital.ID
}

// MarshalJSON flattens the wrapped record and adds kind and date fields
func (i TimelineItem) MarshalJSON() ([]byte, error) {
	var record any
	if i.Kind == KindReport {
		record = i.Report
	} else {
		record = i.Vital
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	kind, _ := json.Marshal(i.Kind)
	date, _ := json.Marshal(Timestamp{Time: i.Date()})
	fields["kind"] = kind
	fields["date"] = date
	return json.Marshal(fields)
}

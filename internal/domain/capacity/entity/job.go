package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ProductionType identifies a production line with its own capacity pool
type ProductionType string

const (
	ProductionTypeScreen      ProductionType = "screen"
	ProductionTypeDTF         ProductionType = "dtf"
	ProductionTypeSublimation ProductionType = "sublimation"
	ProductionTypeEmbroidery  ProductionType = "embroidery"
)

// ProductionTypes lists the known production types in reporting order
var ProductionTypes = []ProductionType{
	ProductionTypeScreen,
	ProductionTypeDTF,
	ProductionTypeSublimation,
	ProductionTypeEmbroidery,
}

// IsKnown reports whether t is one of the four production types
func (t ProductionType) IsKnown() bool {
	switch t {
	case ProductionTypeScreen, ProductionTypeDTF, ProductionTypeSublimation, ProductionTypeEmbroidery:
		return true
	}
	return false
}

// ParseProductionType parses a string into a ProductionType
func ParseProductionType(s string) (ProductionType, error) {
	t := ProductionType(s)
	if !t.IsKnown() {
		return "", ErrInvalidProductionType
	}
	return t, nil
}

// JobStatus represents the lifecycle state of a production job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// JobStatuses lists the canonical statuses
var JobStatuses = []JobStatus{
	JobStatusPending,
	JobStatusInProgress,
	JobStatusCompleted,
	JobStatusCancelled,
}

// ParseJobStatus parses a string into one of the canonical statuses
func ParseJobStatus(s string) (JobStatus, error) {
	switch JobStatus(s) {
	case JobStatusPending, JobStatusInProgress, JobStatusCompleted, JobStatusCancelled:
		return JobStatus(s), nil
	default:
		return "", ErrInvalidStatus
	}
}

// WorkCalc is the work breakdown of a job for one production type
type WorkCalc struct {
	Points        int `json:"points"`
	TotalQuantity int `json:"total_quantity"`
	TotalWork     int `json:"total_work"`
}

// NewWorkCalc builds a WorkCalc where total work is points per piece times quantity
func NewWorkCalc(points, totalQuantity int) WorkCalc {
	return WorkCalc{
		Points:        points,
		TotalQuantity: totalQuantity,
		TotalWork:     points * totalQuantity,
	}
}

// WorkCalculationsKind tags the form a work calculation payload arrived in
type WorkCalculationsKind int

const (
	WorkCalculationsAbsent WorkCalculationsKind = iota
	WorkCalculationsRaw
	WorkCalculationsParsed
)

// WorkCalculations holds a job's per-type breakdown either as the serialized
// string it was stored as or as an already decoded map.
type WorkCalculations struct {
	Kind   WorkCalculationsKind
	Raw    string
	Parsed map[ProductionType]WorkCalc
}

// RawWorkCalculations wraps a serialized payload
func RawWorkCalculations(s string) WorkCalculations {
	return WorkCalculations{Kind: WorkCalculationsRaw, Raw: s}
}

// ParsedWorkCalculations wraps a decoded payload
func ParsedWorkCalculations(m map[ProductionType]WorkCalc) WorkCalculations {
	return WorkCalculations{Kind: WorkCalculationsParsed, Parsed: m}
}

// IsPresent reports whether the job carries any payload at all
func (w WorkCalculations) IsPresent() bool {
	return w.Kind != WorkCalculationsAbsent
}

// Resolve returns the decoded map, parsing the serialized form if needed.
func (w WorkCalculations) Resolve() (map[ProductionType]WorkCalc, error) {
	switch w.Kind {
	case WorkCalculationsParsed:
		return w.Parsed, nil
	case WorkCalculationsRaw:
		var m map[ProductionType]WorkCalc
		if err := json.Unmarshal([]byte(w.Raw), &m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedWorkCalculations, err)
		}
		return m, nil
	default:
		return nil, nil
	}
}

// UnmarshalJSON accepts null, a JSON string holding the serialized map, or the map itself.
// An object that does not match the WorkCalc shape is kept verbatim as Raw.
func (w *WorkCalculations) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*w = WorkCalculations{}
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*w = RawWorkCalculations(s)
		return nil
	}

	var m map[ProductionType]WorkCalc
	if err := json.Unmarshal(trimmed, &m); err != nil {
		*w = RawWorkCalculations(string(trimmed))
		return nil
	}
	*w = ParsedWorkCalculations(m)
	return nil
}

// MarshalJSON writes the decoded map, the raw string, or null
func (w WorkCalculations) MarshalJSON() ([]byte, error) {
	switch w.Kind {
	case WorkCalculationsParsed:
		return json.Marshal(w.Parsed)
	case WorkCalculationsRaw:
		return json.Marshal(w.Raw)
	default:
		return []byte("null"), nil
	}
}

// ProductionJob is a MaxSupply job as read from the job store
type ProductionJob struct {
	ID               string           `json:"id"`
	Title            string           `json:"title,omitempty"`
	Status           JobStatus        `json:"status"`
	ProductionType   ProductionType   `json:"production_type"`
	WorkCalculations WorkCalculations `json:"work_calculations"`
	DueDate          *time.Time       `json:"due_date,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

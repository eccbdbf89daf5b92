package request

import (
	"fmt"
	"time"
)

// Validation error codes
const (
	CodeMissingField      = "MissingField"
	CodeInsufficientStock = "InsufficientStock"
	CodeCeilingExceeded   = "CeilingExceeded"
	CodeDuplicateType     = "DuplicateBloodType"
	CodeExpirationRisk    = "ExpirationRiskWarning"
)

// ExpirationRiskWindow is the gap between request date and date needed
// beyond which collected stock risks expiring before use
const ExpirationRiskWindow = 5 * 24 * time.Hour

// Ceilings maps blood types to the maximum units a single request may ask
// for. Types without an entry are unceilinged.
type Ceilings map[string]int

// DefaultCeilings is the published per-type request policy
var DefaultCeilings = Ceilings{
	"O+":  15,
	"A+":  10,
	"B+":  10,
	"AB+": 7,
}

// ValidationError is one violated rule of a request draft
type ValidationError struct {
	Code      string `json:"code"`
	Field     string `json:"field,omitempty"`
	BloodType string `json:"blood_type,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Available int    `json:"available,omitempty"`
	Message   string `json:"message"`
}

// Advisory is a non-blocking warning surfaced alongside validation
type Advisory struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult collects every violated rule so the caller can present
// all of them at once. OK is true iff Errors is empty; warnings never
// affect OK.
type ValidationResult struct {
	OK       bool              `json:"ok"`
	Errors   []ValidationError `json:"errors"`
	Warnings []Advisory        `json:"warnings"`
}

// Draft is a hospital request before submission
type Draft struct {
	HospitalID    string    `json:"hospital_id"`
	BloodSourceID string    `json:"blood_source_id"`
	Items         []Item    `json:"items"`
	RequestDate   time.Time `json:"request_date"`
	DateNeeded    time.Time `json:"date_needed"`
}

// Availability reports the units currently available for a blood type
type Availability func(bloodType string) int

// Validate checks a draft against required fields, current stock, the
// per-type ceilings and the duplicate rule. Rules are applied in order and
// violations are collected rather than short-circuited.
func Validate(draft Draft, available Availability, ceilings Ceilings) ValidationResult {
	var result ValidationResult

	// 1. Required fields
	if draft.BloodSourceID == "" {
		result.Errors = append(result.Errors, ValidationError{
			Code:    CodeMissingField,
			Field:   "blood_source_id",
			Message: "blood source is required",
		})
	}
	if draft.RequestDate.IsZero() {
		result.Errors = append(result.Errors, ValidationError{
			Code:    CodeMissingField,
			Field:   "request_date",
			Message: "request date is required",
		})
	}
	if draft.DateNeeded.IsZero() {
		result.Errors = append(result.Errors, ValidationError{
			Code:    CodeMissingField,
			Field:   "date_needed",
			Message: "date needed is required",
		})
	}
	if len(draft.Items) == 0 {
		result.Errors = append(result.Errors, ValidationError{
			Code:    CodeMissingField,
			Field:   "items",
			Message: "at least one blood type item is required",
		})
	}
	for i, item := range draft.Items {
		if item.BloodType == "" {
			result.Errors = append(result.Errors, ValidationError{
				Code:    CodeMissingField,
				Field:   fmt.Sprintf("items[%d].blood_type", i),
				Message: "blood type is required",
			})
		}
		if item.UnitsRequested <= 0 {
			result.Errors = append(result.Errors, ValidationError{
				Code:    CodeMissingField,
				Field:   fmt.Sprintf("items[%d].units_requested", i),
				Message: "units requested must be positive",
			})
		}
	}

	// 2. Stock sufficiency
	for _, item := range draft.Items {
		if item.BloodType == "" || item.UnitsRequested <= 0 {
			continue
		}
		avail := available(item.BloodType)
		if item.UnitsRequested > avail {
			result.Errors = append(result.Errors, ValidationError{
				Code:      CodeInsufficientStock,
				BloodType: item.BloodType,
				Available: avail,
				Message:   fmt.Sprintf("only %d units of %s available", avail, item.BloodType),
			})
		}
	}

	// 3. Per-type ceiling
	for _, item := range draft.Items {
		if item.BloodType == "" || item.UnitsRequested <= 0 {
			continue
		}
		ceiling, ok := ceilings[item.BloodType]
		if ok && item.UnitsRequested > ceiling {
			result.Errors = append(result.Errors, ValidationError{
				Code:      CodeCeilingExceeded,
				BloodType: item.BloodType,
				Limit:     ceiling,
				Message:   fmt.Sprintf("at most %d units of %s per request", ceiling, item.BloodType),
			})
		}
	}

	// 4. No duplicate types
	seen := make(map[string]bool, len(draft.Items))
	reported := make(map[string]bool)
	for _, item := range draft.Items {
		if item.BloodType == "" {
			continue
		}
		if seen[item.BloodType] && !reported[item.BloodType] {
			result.Errors = append(result.Errors, ValidationError{
				Code:      CodeDuplicateType,
				BloodType: item.BloodType,
				Message:   fmt.Sprintf("blood type %s appears more than once", item.BloodType),
			})
			reported[item.BloodType] = true
		}
		seen[item.BloodType] = true
	}

	// 5. Expiration-risk advisory (never blocks)
	if !draft.RequestDate.IsZero() && !draft.DateNeeded.IsZero() &&
		draft.DateNeeded.Sub(draft.RequestDate) > ExpirationRiskWindow {
		result.Warnings = append(result.Warnings, Advisory{
			Code:    CodeExpirationRisk,
			Message: "date needed is more than 5 days out; stock allocated now may expire before use",
		})
	}

	result.OK = len(result.Errors) == 0
	return result
}

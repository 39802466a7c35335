package dto

import (
	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/itop-report/internal/domain"
)

var validate = validator.New()

// ReportQuery captures the optional period bounds of report endpoints.
// Both bounds are YYYY-MM-DD; the end date is exclusive.
type ReportQuery struct {
	Start string `query:"start" validate:"omitempty,datetime=2006-01-02"`
	End   string `query:"end" validate:"omitempty,datetime=2006-01-02"`
}

// Validate checks the bound formats.
func (q ReportQuery) Validate() error {
	return validate.Struct(q)
}

// ReportLinks points at follow-up resources of a report.
type ReportLinks struct {
	Document string `json:"document,omitempty"`
	View     string `json:"view"`
}

// ReportResponse wraps a report for the JSON API.
type ReportResponse struct {
	Data           *domain.Report `json:"data"`
	PeriodLabel    string         `json:"period_label"`
	FailedSections []string       `json:"failed_sections"`
	Links          ReportLinks    `json:"links"`
}

// Package models defines the domain types shared across repositories,
// services, and handlers.
package models

import (
	"time"
)

// Vacancy is a stored job posting. Content is the raw (possibly HTML-bearing)
// text and is immutable once stored. Attributes and Embedding are filled in
// lazily by the indexing workers and may be nil until then.
type Vacancy struct {
	ID         int64
	Content    string
	Attributes *VacancyAttributes
	Embedding  []float32
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// VacancyAttributes is the structured record extracted from a vacancy by the
// generative model. Empty fields mean the vacancy did not mention them.
// A non-empty ParseError marks an extraction that failed; such a record
// carries no usable fields and the raw model output for debugging.
type VacancyAttributes struct {
	JobTitle       string   `json:"job_title"`
	Occupation     string   `json:"occupation"`
	Skills         []string `json:"skills"`
	WorkType       string   `json:"work_type"`
	Seniority      string   `json:"seniority"`
	ContactInfo    string   `json:"contact_info"`
	Location       string   `json:"location"`
	Salary         string   `json:"salary"`
	EmploymentType string   `json:"employment_type"`

	ParseError string `json:"error,omitempty"`
	Raw        string `json:"raw,omitempty"`
}

// Failed reports whether this record is a parse-failure marker.
func (a *VacancyAttributes) Failed() bool {
	return a == nil || a.ParseError != ""
}

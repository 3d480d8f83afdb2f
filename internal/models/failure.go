package models

import "strings"

// FrameworkLabel names the test framework convention a failure was attributed to.
type FrameworkLabel string

const (
	FrameworkRSpec        FrameworkLabel = "RSpec"
	FrameworkRSpecSummary FrameworkLabel = "RSpec-Summary"
	FrameworkJest         FrameworkLabel = "Jest"
	FrameworkKarma        FrameworkLabel = "Karma"
	FrameworkCypress      FrameworkLabel = "Cypress"
	FrameworkUnstructured FrameworkLabel = "Unstructured" // last-resort heuristics
)

// FailureRecord is a best-effort association of a failing spec with its diagnostic message.
type FailureRecord struct {
	Type        FrameworkLabel `json:"type" yaml:"type"`
	Spec        string         `json:"spec" yaml:"spec"`
	Message     string         `json:"message" yaml:"message"`
	JobID       string         `json:"job_id,omitempty" yaml:"job_id,omitempty"`
	JobName     string         `json:"job_name,omitempty" yaml:"job_name,omitempty"`
	JobURL      string         `json:"job_url,omitempty" yaml:"job_url,omitempty"`
	BuildNumber string         `json:"build_number,omitempty" yaml:"build_number,omitempty"`
}

// IsEmpty reports whether the record carries neither a spec nor a message.
func (r FailureRecord) IsEmpty() bool {
	return strings.TrimSpace(r.Spec) == "" && strings.TrimSpace(r.Message) == ""
}

// JobContext identifies the CI job a log belongs to. It is attached to
// extracted records for traceability only.
type JobContext struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
	BuildNumber string `json:"build_number,omitempty" yaml:"build_number,omitempty"`
}

// Apply stamps the job fields onto a record.
func (j JobContext) Apply(r FailureRecord) FailureRecord {
	r.JobID = j.ID
	r.JobName = j.Name
	r.JobURL = j.URL
	r.BuildNumber = j.BuildNumber
	return r
}

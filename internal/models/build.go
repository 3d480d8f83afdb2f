package models

import "time"

type JobState string

const (
	JobStatePassed   JobState = "passed"
	JobStateFailed   JobState = "failed"
	JobStateBroken   JobState = "broken"
	JobStateRunning  JobState = "running"
	JobStateCanceled JobState = "canceled"
)

// Organization is a Buildkite organization.
type Organization struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	WebURL    string    `json:"web_url"`
	CreatedAt time.Time `json:"created_at"`
}

// Pipeline is a Buildkite pipeline.
type Pipeline struct {
	ID            string    `json:"id"`
	Slug          string    `json:"slug"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Repository    string    `json:"repository"`
	DefaultBranch string    `json:"default_branch"`
	WebURL        string    `json:"web_url"`
	BuildsURL     string    `json:"builds_url"`
	CreatedAt     time.Time `json:"created_at"`
}

// Build is a single CI run composed of jobs.
type Build struct {
	ID         string     `json:"id"`
	Number     int        `json:"number"`
	State      string     `json:"state"`
	Branch     string     `json:"branch"`
	Commit     string     `json:"commit"`
	Message    string     `json:"message"`
	WebURL     string     `json:"web_url"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Jobs       []Job      `json:"jobs"`
}

// Job is one execution unit of a build.
type Job struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Name       string     `json:"name"`
	State      JobState   `json:"state"`
	WebURL     string     `json:"web_url"`
	LogURL     string     `json:"log_url"`
	RawLogURL  string     `json:"raw_log_url"`
	ExitStatus *int       `json:"exit_status,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// HasFailed reports whether the job ended in a failure state. Broken jobs
// count only when includeBroken is set.
func (j Job) HasFailed(includeBroken bool) bool {
	if j.State == JobStateFailed {
		return true
	}
	return includeBroken && j.State == JobStateBroken
}

// JobLog is the decoded body of a job's log endpoint.
type JobLog struct {
	URL     string `json:"url"`
	Content string `json:"content"`
	Size    int    `json:"size"`
}

// FailedJobSummary is the compact job view used in build failure listings.
type FailedJobSummary struct {
	Name   string   `json:"name"`
	State  JobState `json:"state"`
	WebURL string   `json:"web_url"`
	LogURL string   `json:"log_url"`
}

// BuildFailure summarises a build that failed or contains failed jobs.
type BuildFailure struct {
	BuildNumber int                `json:"build_number"`
	BuildURL    string             `json:"build_url"`
	CreatedAt   time.Time          `json:"created_at"`
	Branch      string             `json:"branch"`
	Commit      string             `json:"commit"`
	State       string             `json:"state"`
	Message     string             `json:"message"`
	FailedJobs  []FailedJobSummary `json:"failed_jobs"`
}

// JobFailures groups the failures extracted from one job's log.
type JobFailures struct {
	ID       string          `json:"id" yaml:"id"`
	Name     string          `json:"name" yaml:"name"`
	WebURL   string          `json:"web_url" yaml:"web_url"`
	Strategy string          `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Failures []FailureRecord `json:"failures" yaml:"failures"`
}

// FetchError reports a job whose log could not be retrieved.
type FetchError struct {
	JobID   string `json:"job_id" yaml:"job_id"`
	JobName string `json:"job_name" yaml:"job_name"`
	Error   string `json:"error" yaml:"error"`
}

// FailedSpecsReport is the per-build result of the authoritative pipeline.
type FailedSpecsReport struct {
	BuildURL       string          `json:"build_url" yaml:"build_url"`
	FailedJobCount int             `json:"failed_job_count" yaml:"failed_job_count"`
	Jobs           []JobFailures   `json:"jobs" yaml:"jobs"`
	Failures       []FailureRecord `json:"failures" yaml:"failures"`
	FetchErrors    []FetchError    `json:"fetch_errors,omitempty" yaml:"fetch_errors,omitempty"`
}

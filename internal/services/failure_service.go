package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/specscan/backend/internal/buildkite"
	"github.com/specscan/backend/internal/logger"
	"github.com/specscan/backend/internal/metrics"
	"github.com/specscan/backend/internal/models"
)

// BuildkiteAPI is the subset of the Buildkite client used by FailureService.
type BuildkiteAPI interface {
	ListBuilds(ctx context.Context, org, pipeline string, q buildkite.BuildQuery) ([]models.Build, error)
	GetBuild(ctx context.Context, org, pipeline string, number int) (*models.Build, error)
	GetJobLog(ctx context.Context, org, pipeline string, number int, jobID string) (*models.JobLog, error)
	JobURL(org, pipeline string, number int, jobID string) string
}

// FailureService locates failing jobs in builds and extracts failure records
// from their logs.
type FailureService struct {
	api       BuildkiteAPI
	extractor *ExtractionService
}

// NewFailureService creates a new failure service
func NewFailureService(api BuildkiteAPI, extractor *ExtractionService) *FailureService {
	if extractor == nil {
		extractor = NewExtractionService(nil)
	}
	return &FailureService{api: api, extractor: extractor}
}

// ListJobs returns every job of a build.
func (s *FailureService) ListJobs(ctx context.Context, org, pipeline string, number int) ([]models.Job, error) {
	build, err := s.api.GetBuild(ctx, org, pipeline, number)
	if err != nil {
		return nil, err
	}
	if build.Jobs == nil {
		return []models.Job{}, nil
	}
	return build.Jobs, nil
}

// ListFailedJobs returns the jobs of a build whose state is failed.
func (s *FailureService) ListFailedJobs(ctx context.Context, org, pipeline string, number int) ([]models.Job, error) {
	build, err := s.api.GetBuild(ctx, org, pipeline, number)
	if err != nil {
		return nil, err
	}
	return failedJobs(build.Jobs, false), nil
}

// ListPipelineBuildFailures returns the builds on one page of a pipeline's
// history that failed, broke or contain failed or broken jobs.
func (s *FailureService) ListPipelineBuildFailures(ctx context.Context, org, pipeline string, q buildkite.BuildQuery) ([]models.BuildFailure, error) {
	builds, err := s.api.ListBuilds(ctx, org, pipeline, q)
	if err != nil {
		return nil, err
	}

	failures := make([]models.BuildFailure, 0)
	for _, b := range builds {
		jobs := failedJobs(b.Jobs, true)
		if b.State != string(models.JobStateFailed) && b.State != string(models.JobStateBroken) && len(jobs) == 0 {
			continue
		}

		summaries := make([]models.FailedJobSummary, 0, len(jobs))
		for _, j := range jobs {
			summaries = append(summaries, models.FailedJobSummary{
				Name:   j.Name,
				State:  j.State,
				WebURL: j.WebURL,
				LogURL: j.RawLogURL,
			})
		}
		failures = append(failures, models.BuildFailure{
			BuildNumber: b.Number,
			BuildURL:    b.WebURL,
			CreatedAt:   b.CreatedAt,
			Branch:      b.Branch,
			Commit:      b.Commit,
			State:       b.State,
			Message:     b.Message,
			FailedJobs:  summaries,
		})
	}
	return failures, nil
}

// ListJobSpecFailures fetches one job log and runs the coarse catalog sweep
// over it. Records carry the job id, job link and build number.
func (s *FailureService) ListJobSpecFailures(ctx context.Context, org, pipeline string, number int, jobID string) ([]models.FailureRecord, error) {
	jobLog, err := s.api.GetJobLog(ctx, org, pipeline, number, jobID)
	if err != nil {
		return nil, err
	}

	job := models.JobContext{
		ID:          jobID,
		URL:         s.api.JobURL(org, pipeline, number, jobID),
		BuildNumber: strconv.Itoa(number),
	}
	records := s.extractor.All(jobLog.Content)
	for i := range records {
		records[i] = job.Apply(records[i])
	}
	return records, nil
}

// ListFailedSpecs builds the failed-specs report for a build link. Failed
// jobs are processed one at a time in build order. A job whose log cannot be
// fetched contributes no records and is listed in FetchErrors.
func (s *FailureService) ListFailedSpecs(ctx context.Context, buildURL string) (*models.FailedSpecsReport, error) {
	org, pipeline, number, err := buildkite.ParseBuildURL(buildURL)
	if err != nil {
		return nil, err
	}

	build, err := s.api.GetBuild(ctx, org, pipeline, number)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve build information: %w", err)
	}

	failed := failedJobs(build.Jobs, false)
	report := &models.FailedSpecsReport{
		BuildURL:       buildURL,
		FailedJobCount: len(failed),
		Jobs:           make([]models.JobFailures, 0, len(failed)),
		Failures:       make([]models.FailureRecord, 0),
	}

	buildLog := logger.WithBuild(org, pipeline, number)
	buildLog.WithField("failed_jobs", len(failed)).Info("Collecting failed specs")

	for _, job := range failed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry := models.JobFailures{
			ID:       job.ID,
			Name:     job.Name,
			WebURL:   job.WebURL,
			Failures: []models.FailureRecord{},
		}

		jobLog, err := s.api.GetJobLog(ctx, org, pipeline, number, job.ID)
		if err != nil {
			metrics.IncLogFetchErrors()
			logger.WithJob(job.ID, job.Name).WithError(err).Warn("Failed to fetch job log")
			report.FetchErrors = append(report.FetchErrors, models.FetchError{
				JobID:   job.ID,
				JobName: job.Name,
				Error:   err.Error(),
			})
			report.Jobs = append(report.Jobs, entry)
			continue
		}

		result := s.extractor.Authoritative(jobLog.Content, models.JobContext{
			ID:          job.ID,
			Name:        job.Name,
			URL:         job.WebURL,
			BuildNumber: strconv.Itoa(number),
		})
		entry.Strategy = result.Strategy
		entry.Failures = result.Failures
		report.Jobs = append(report.Jobs, entry)
		report.Failures = append(report.Failures, result.Failures...)
	}

	buildLog.WithField("failures", len(report.Failures)).Info("Failed specs collected")
	return report, nil
}

func failedJobs(jobs []models.Job, includeBroken bool) []models.Job {
	out := make([]models.Job, 0)
	for _, j := range jobs {
		if j.HasFailed(includeBroken) {
			out = append(out, j)
		}
	}
	return out
}

package buildkite

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/specscan/backend/internal/metrics"
	"github.com/specscan/backend/internal/models"
)

// BuildQuery filters a build listing. Zero fields are omitted.
type BuildQuery struct {
	PerPage int
	Page    int
	State   string
	Branch  string
}

func (q BuildQuery) values() url.Values {
	v := url.Values{}
	if q.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.State != "" {
		v.Set("state", q.State)
	}
	if q.Branch != "" {
		v.Set("branch", q.Branch)
	}
	return v
}

func buildPath(org, pipeline string, number int) string {
	return fmt.Sprintf("/organizations/%s/pipelines/%s/builds/%d",
		url.PathEscape(org), url.PathEscape(pipeline), number)
}

func jobPath(org, pipeline string, number int, jobID string) string {
	return buildPath(org, pipeline, number) + "/jobs/" + url.PathEscape(jobID)
}

func (c *Client) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	var orgs []models.Organization
	if err := c.do(ctx, "list_organizations", http.MethodGet, "/organizations", nil, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

func (c *Client) ListPipelines(ctx context.Context, org string) ([]models.Pipeline, error) {
	var pipelines []models.Pipeline
	path := fmt.Sprintf("/organizations/%s/pipelines", url.PathEscape(org))
	if err := c.do(ctx, "list_pipelines", http.MethodGet, path, nil, &pipelines); err != nil {
		return nil, err
	}
	return pipelines, nil
}

// ListBuilds returns one page of builds for a pipeline, newest first.
func (c *Client) ListBuilds(ctx context.Context, org, pipeline string, q BuildQuery) ([]models.Build, error) {
	var builds []models.Build
	path := fmt.Sprintf("/organizations/%s/pipelines/%s/builds", url.PathEscape(org), url.PathEscape(pipeline))
	if err := c.do(ctx, "list_builds", http.MethodGet, path, q.values(), &builds); err != nil {
		return nil, err
	}
	return builds, nil
}

// GetBuild returns a build with its jobs.
func (c *Client) GetBuild(ctx context.Context, org, pipeline string, number int) (*models.Build, error) {
	var build models.Build
	if err := c.do(ctx, "get_build", http.MethodGet, buildPath(org, pipeline, number), nil, &build); err != nil {
		return nil, err
	}
	return &build, nil
}

// GetJobLog returns the log of a job. Results are cached per client when a
// cache TTL is configured.
func (c *Client) GetJobLog(ctx context.Context, org, pipeline string, number int, jobID string) (*models.JobLog, error) {
	path := jobPath(org, pipeline, number, jobID) + "/log"

	if c.logs != nil {
		if cached, ok := c.logs.Get(path); ok {
			metrics.ObserveLogCache(true)
			jobLog := cached.(models.JobLog)
			return &jobLog, nil
		}
		metrics.ObserveLogCache(false)
	}

	var jobLog models.JobLog
	if err := c.do(ctx, "get_job_log", http.MethodGet, path, nil, &jobLog); err != nil {
		return nil, err
	}
	if c.logs != nil {
		c.logs.SetDefault(path, jobLog)
	}
	return &jobLog, nil
}

// RetryJob asks Buildkite to retry a failed job and returns the new job.
func (c *Client) RetryJob(ctx context.Context, org, pipeline string, number int, jobID string) (*models.Job, error) {
	var job models.Job
	if err := c.do(ctx, "retry_job", http.MethodPut, jobPath(org, pipeline, number, jobID)+"/retry", nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

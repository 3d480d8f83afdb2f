package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/specscan/backend/internal/buildkite"
	"github.com/specscan/backend/internal/logger"
	"github.com/specscan/backend/internal/services"
)

// BuildkiteRequest is the union of the fields accepted by the Buildkite
// endpoints. Each handler checks the ones it needs.
type BuildkiteRequest struct {
	Organization string      `json:"organization"`
	Pipeline     string      `json:"pipeline"`
	BuildNumber  json.Number `json:"build_number"`
	JobID        string      `json:"job_id"`
	PerPage      int         `json:"per_page"`
	Page         int         `json:"page"`
	State        string      `json:"state"`
	Branch       string      `json:"branch"`
	BuildURL     string      `json:"build_url"`
	AccessToken  string      `json:"access_token"`
}

type BuildkiteController struct {
	client    *buildkite.Client
	extractor *services.ExtractionService
}

func NewBuildkiteController(client *buildkite.Client, extractor *services.ExtractionService) *BuildkiteController {
	return &BuildkiteController{
		client:    client,
		extractor: extractor,
	}
}

const (
	msgOrgPipeline      = "Organization and pipeline parameters are required"
	msgOrgPipelineBuild = "Organization, pipeline, and build_number are required"
	msgOrgPipelineJob   = "Organization, pipeline, build_number, and job_id are required"
	msgOrg              = "Organization parameter is required"
	msgBuildURL         = "build_url is required"
	msgToken            = "Buildkite access token is required"
	msgInvalidBuildURL  = "Invalid Buildkite URL. Format should be: https://buildkite.com/org/pipeline/builds/number"
	msgUnauthorized     = "Authentication failed. Check your Buildkite access token."
	msgNotFound         = "Resource not found. Check your organization, pipeline, or build information."
	msgBuildInfo        = "Failed to retrieve build information"
)

// bind decodes the JSON body. An empty body yields a zero request.
func bind(c *gin.Context, req *BuildkiteRequest) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		logger.WithError(err, "buildkite_controller").Warn("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return false
	}
	return true
}

// buildNumber parses the build number, writing a 400 response on failure.
func buildNumber(c *gin.Context, raw json.Number, missing string) (int, bool) {
	s := strings.TrimSpace(raw.String())
	if s == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": missing})
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "build_number must be a positive integer"})
		return 0, false
	}
	return n, true
}

// handleAPIError maps client errors to HTTP responses.
func handleAPIError(c *gin.Context, err error, operation string) {
	logger.WithError(err, "buildkite_controller").WithField("operation", operation).Error("Buildkite request failed")

	switch status := buildkite.StatusCode(err); {
	case status == http.StatusUnauthorized:
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgUnauthorized})
	case status == http.StatusNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
	case status > 0:
		var apiErr *buildkite.APIError
		errors.As(err, &apiErr)
		c.JSON(status, gin.H{"error": upstreamBody(apiErr.Body)})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// upstreamBody passes JSON error bodies through as objects and anything else
// as a string.
func upstreamBody(body string) interface{} {
	var decoded interface{}
	if json.Unmarshal([]byte(body), &decoded) == nil {
		return decoded
	}
	return body
}

func (bc *BuildkiteController) clientFor(req *BuildkiteRequest) *buildkite.Client {
	return bc.client.WithToken(req.AccessToken)
}

func (bc *BuildkiteController) failuresFor(req *BuildkiteRequest) *services.FailureService {
	return services.NewFailureService(bc.clientFor(req), bc.extractor)
}

// ListBuilds returns one page of builds for a pipeline
func (bc *BuildkiteController) ListBuilds(c *gin.Context) {
	req := BuildkiteRequest{PerPage: 10, Page: 1}
	if !bind(c, &req) {
		return
	}
	if req.Organization == "" || req.Pipeline == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgOrgPipeline})
		return
	}

	builds, err := bc.clientFor(&req).ListBuilds(c.Request.Context(), req.Organization, req.Pipeline, buildkite.BuildQuery{
		PerPage: req.PerPage,
		Page:    req.Page,
		State:   req.State,
		Branch:  req.Branch,
	})
	if err != nil {
		handleAPIError(c, err, "list_builds")
		return
	}
	c.JSON(http.StatusOK, builds)
}

func (bc *BuildkiteController) GetBuild(c *gin.Context) {
	var req BuildkiteRequest
	if !bind(c, &req) {
		return
	}
	if req.Organization == "" || req.Pipeline == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgOrgPipelineBuild})
		return
	}
	number, ok := buildNumber(c, req.BuildNumber, msgOrgPipelineBuild)
	if !ok {
		return
	}

	build, err := bc.clientFor(&req).GetBuild(c.Request.Context(), req.Organization, req.Pipeline, number)
	if err != nil {
		handleAPIError(c, err, "get_build")
		return
	}
	c.JSON(http.StatusOK, build)
}

func (bc *BuildkiteController) ListJobs(c *gin.Context) {
	var req BuildkiteRequest
	if !bind(c, &req) {
		return
	}
	if req.Organization == "" || req.Pipeline == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgOrgPipelineBuild})
		return
	}
	number, ok := buildNumber(c, req.BuildNumber, msgOrgPipelineBuild)
	if !ok {
		return
	}

	jobs, err := bc.failuresFor(&req).ListJobs(c.Request.Context(), req.Organization, req.Pipeline, number)
	if err != nil {
		handleAPIError(c, err, "list_jobs")
		return
	}
	c.JSON(http.StatusOK, jobs)
}

func (bc *BuildkiteController) ListFailedJobs(c *gin.Context) {
	var req BuildkiteRequest
	if !bind(c, &req) {
		return
	}
	if req.Organization == "" || req.Pipeline == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgOrgPipelineBuild})
		return
	}
	number, ok := buildNumber(c, req.BuildNumber, msgOrgPipelineBuild)
	if !ok {
		return
	}

	jobs, err := bc.failuresFor(&req).ListFailedJobs(c.Request.Context(), req.Organization, req.Pipeline, number)
	if err != nil {
		handleAPIError(c, err, "list_failed_jobs")
		return
	}
	c.JSON(http.StatusOK, jobs)
}

func (bc *BuildkiteController) GetJobLog(c *gin.Context) {
	var req BuildkiteRequest
	if !bind(c, &req) {
		return
	}
	if req.Organization == "" || req.Pipeline == "" || req.JobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgOrgPipelineJob})
		return
	}
	number, ok := buildNumber(c, req.BuildNumber, msgOrgPipelineJob)
	if !ok {
		return
	}

	jobLog, err := bc.clientFor(&req).GetJobLog(c.Request.Context(), req.Organization, req.Pipeline, number, req.JobID)
	if err != nil {
		handleAPIError(c, err, "get_job_log")
		return
	}
	c.JSON(http.StatusOK, jobLog)
}

func (bc *BuildkiteController) ListPipelines(c *gin.Context) {
	var req BuildkiteRequest
	if !bind(c, &req) {
		return
	}
	if req.Organization == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgOrg})
		return
	}

	pipelines, err := bc.clientFor(&req).ListPipelines(c.Request.Context(), req.Organization)
	if err != nil {
		handleAPIError(c, err, "list_pipelines")
		return
	}
	c.JSON(http.StatusOK, pipelines)
}

func (bc *BuildkiteController) ListOrganizations(c *gin.Context) {
	var req BuildkiteRequest
	if !bind(c, &req) {
		return
	}

	orgs, err := bc.clientFor(&req).ListOrganizations(c.Request.Context())
	if err != nil {
		handleAPIError(c, err, "list_organizations")
		return
	}
	c.JSON(http.StatusOK, orgs)
}

func (bc *BuildkiteController) RetryJob(c *gin.Context) {
	var req BuildkiteRequest
	if !bind(c, &req) {
		return
	}
	if req.Organization == "" || req.Pipeline == "" || req.JobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgOrgPipelineJob})
		return
	}
	number, ok := buildNumber(c, req.BuildNumber, msgOrgPipelineJob)
	if !ok {
		return
	}

	job, err := bc.clientFor(&req).RetryJob(c.Request.Context(), req.Organization, req.Pipeline, number, req.JobID)
	if err != nil {
		handleAPIError(c, err, "retry_job")
		return
	}

	logger.Info("Job retry requested", map[string]interface{}{
		"organization": req.Organization,
		"pipeline":     req.Pipeline,
		"build_number": number,
		"job_id":       req.JobID,
	})
	c.JSON(http.StatusOK, job)
}

// ListPipelineBuildFailures lists recent builds that failed or contain failed jobs
func (bc *BuildkiteController) ListPipelineBuildFailures(c *gin.Context) {
	req := BuildkiteRequest{PerPage: 20, Page: 1, State: "finished"}
	if !bind(c, &req) {
		return
	}
	if req.Organization == "" || req.Pipeline == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgOrgPipeline})
		return
	}

	failures, err := bc.failuresFor(&req).ListPipelineBuildFailures(c.Request.Context(), req.Organization, req.Pipeline, buildkite.BuildQuery{
		PerPage: req.PerPage,
		Page:    req.Page,
		State:   req.State,
	})
	if err != nil {
		handleAPIError(c, err, "list_pipeline_build_failures")
		return
	}
	c.JSON(http.StatusOK, failures)
}

// ListJobSpecFailures runs the coarse catalog over one job log
func (bc *BuildkiteController) ListJobSpecFailures(c *gin.Context) {
	var req BuildkiteRequest
	if !bind(c, &req) {
		return
	}
	if req.Organization == "" || req.Pipeline == "" || req.JobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgOrgPipelineJob})
		return
	}
	number, ok := buildNumber(c, req.BuildNumber, msgOrgPipelineJob)
	if !ok {
		return
	}

	records, err := bc.failuresFor(&req).ListJobSpecFailures(c.Request.Context(), req.Organization, req.Pipeline, number, req.JobID)
	if err != nil {
		handleAPIError(c, err, "list_job_spec_failures")
		return
	}
	c.JSON(http.StatusOK, records)
}

// ListFailedSpecs reports failed specs for every failed job of a build link
func (bc *BuildkiteController) ListFailedSpecs(c *gin.Context) {
	var req BuildkiteRequest
	if !bind(c, &req) {
		return
	}
	if req.BuildURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgBuildURL})
		return
	}
	if req.AccessToken == "" && !bc.client.HasToken() {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgToken})
		return
	}
	if _, _, _, err := buildkite.ParseBuildURL(req.BuildURL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBuildURL})
		return
	}

	report, err := bc.failuresFor(&req).ListFailedSpecs(c.Request.Context(), req.BuildURL)
	if err != nil {
		if status := buildkite.StatusCode(err); status == http.StatusUnauthorized || status == http.StatusNotFound {
			handleAPIError(c, err, "list_failed_specs")
			return
		}
		logger.WithError(err, "buildkite_controller").Error("Error fetching build information")
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgBuildInfo})
		return
	}
	c.JSON(http.StatusOK, report)
}

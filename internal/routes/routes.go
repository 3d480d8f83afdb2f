package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/specscan/backend/internal/buildkite"
	"github.com/specscan/backend/internal/controllers"
	"github.com/specscan/backend/internal/middleware"
	"github.com/specscan/backend/internal/services"
)

// Version is reported by the health endpoint.
var Version = "dev"

// Options carries the dependencies routes are wired to.
type Options struct {
	Client    *buildkite.Client
	Extractor *services.ExtractionService
	Rules     *services.FingerprintRuleService
	JWTSecret string
	Gatherer  prometheus.Gatherer
}

// SetupRoutes configures all application routes
func SetupRoutes(r *gin.Engine, opts Options) {
	if opts.Client == nil {
		opts.Client = buildkite.NewClient(buildkite.Config{})
	}
	if opts.Rules == nil {
		opts.Rules, _ = services.NewFingerprintRuleService(nil)
	}
	if opts.Extractor == nil {
		opts.Extractor = services.NewExtractionService(opts.Rules.Engine())
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	buildkiteController := controllers.NewBuildkiteController(opts.Client, opts.Extractor)
	extractController := controllers.NewExtractController(opts.Extractor)
	fingerprintController := controllers.NewFingerprintRuleController(opts.Rules)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   Version,
			"services": gin.H{
				"buildkite": gin.H{"token_configured": opts.Client.HasToken()},
			},
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))

	protected := r.Group("/")
	protected.Use(middleware.AuthMiddleware(opts.JWTSecret))
	{
		protected.POST("/mcp_buildkite_list_builds", buildkiteController.ListBuilds)
		protected.POST("/mcp_buildkite_get_build", buildkiteController.GetBuild)
		protected.POST("/mcp_buildkite_list_jobs", buildkiteController.ListJobs)
		protected.POST("/mcp_buildkite_list_failed_jobs", buildkiteController.ListFailedJobs)
		protected.POST("/mcp_buildkite_get_job_log", buildkiteController.GetJobLog)
		protected.POST("/mcp_buildkite_list_pipelines", buildkiteController.ListPipelines)
		protected.POST("/mcp_buildkite_list_organizations", buildkiteController.ListOrganizations)
		protected.POST("/mcp_buildkite_retry_job", buildkiteController.RetryJob)
		protected.POST("/mcp_buildkite_list_pipeline_build_failures", buildkiteController.ListPipelineBuildFailures)
		protected.POST("/mcp_buildkite_list_job_spec_failures", buildkiteController.ListJobSpecFailures)
		protected.POST("/mcp_buildkite_list_failed_specs", buildkiteController.ListFailedSpecs)

		api := protected.Group("/api/v1")
		{
			api.POST("/extract", extractController.Extract)
			api.GET("/strategies", extractController.Strategies)
			api.GET("/fingerprints", fingerprintController.GetFingerprints)
			api.POST("/fingerprints/test", fingerprintController.TestFingerprintRule)
		}
	}
}

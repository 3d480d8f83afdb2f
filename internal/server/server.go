package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/specscan/backend/internal/buildkite"
	"github.com/specscan/backend/internal/config"
	"github.com/specscan/backend/internal/logger"
	"github.com/specscan/backend/internal/metrics"
	"github.com/specscan/backend/internal/middleware"
	"github.com/specscan/backend/internal/routes"
	"github.com/specscan/backend/internal/services"
)

const shutdownTimeout = 30 * time.Second

// NewClient builds the Buildkite client described by cfg.
func NewClient(cfg *config.Config) *buildkite.Client {
	return buildkite.NewClient(buildkite.Config{
		Token:             cfg.Buildkite.Token,
		BaseURL:           cfg.Buildkite.APIURL,
		WebURL:            cfg.Buildkite.WebURL,
		Timeout:           cfg.Buildkite.Timeout,
		RequestsPerSecond: cfg.Buildkite.RequestsPerSecond,
		Burst:             cfg.Buildkite.Burst,
		LogCacheTTL:       cfg.Buildkite.LogCacheTTL,
	})
}

// NewRouter assembles the gin engine with middleware and routes.
func NewRouter(cfg *config.Config, reg *prometheus.Registry) (*gin.Engine, error) {
	if cfg.Server.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	if err := metrics.Register(reg); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	rules, err := services.LoadFingerprintRules(cfg.Extract.FingerprintsFile)
	if err != nil {
		return nil, err
	}
	ruleService, err := services.NewFingerprintRuleService(rules)
	if err != nil {
		return nil, fmt.Errorf("invalid fingerprint rules: %w", err)
	}

	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Server.CORSOrigin))
	r.Use(gin.Recovery())

	routes.SetupRoutes(r, routes.Options{
		Client:    NewClient(cfg),
		Extractor: services.NewExtractionService(ruleService.Engine()),
		Rules:     ruleService,
		JWTSecret: cfg.Server.JWTSecret,
		Gatherer:  reg,
	})
	return r, nil
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully.
func Run(ctx context.Context, cfg *config.Config) error {
	router, err := NewRouter(cfg, nil)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Starting specscan server", map[string]interface{}{
		"port":       cfg.Server.Port,
		"gin_mode":   gin.Mode(),
		"token":      cfg.HasToken(),
		"auth":       cfg.Server.JWTSecret != "",
		"buildkite":  cfg.Buildkite.APIURL,
		"rate_limit": cfg.Buildkite.RequestsPerSecond,
		"log_ttl":    cfg.Buildkite.LogCacheTTL.String(),
	})
	if !cfg.HasToken() {
		logger.Warn("BUILDKITE_ACCESS_TOKEN is not set; requests must supply access_token", nil)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server gracefully...", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	logger.Info("Server exited gracefully", nil)
	return nil
}

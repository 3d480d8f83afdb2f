// Package buildkite is a small REST client for the Buildkite v2 API covering
// the build, job and log endpoints needed to locate failing specs.
package buildkite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/specscan/backend/internal/logger"
	"github.com/specscan/backend/internal/metrics"
)

const (
	// DefaultBaseURL is the Buildkite REST API root.
	DefaultBaseURL = "https://api.buildkite.com/v2"
	// DefaultWebURL is the root used to build job links.
	DefaultWebURL = "https://buildkite.com"

	DefaultTimeout = 30 * time.Second
)

// Config configures a Client. Zero values fall back to defaults, except Token.
type Config struct {
	Token             string
	BaseURL           string
	WebURL            string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	LogCacheTTL       time.Duration
}

// Client talks to the Buildkite REST API. It is safe for concurrent use.
type Client struct {
	token      string
	baseURL    string
	webURL     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logs       *cache.Cache
	logTTL     time.Duration
}

// NewClient creates a client from cfg.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.WebURL == "" {
		cfg.WebURL = DefaultWebURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	var logs *cache.Cache
	if cfg.LogCacheTTL > 0 {
		logs = cache.New(cfg.LogCacheTTL, 2*cfg.LogCacheTTL)
	}

	return &Client{
		token:      cfg.Token,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		webURL:     strings.TrimRight(cfg.WebURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		logs:       logs,
		logTTL:     cfg.LogCacheTTL,
	}
}

// WithToken returns a copy of the client that authenticates with token. The
// copy shares the rate limiter but not the log cache, so logs fetched with one
// token are never served to another. An empty token returns c unchanged.
func (c *Client) WithToken(token string) *Client {
	if token == "" || token == c.token {
		return c
	}
	clone := *c
	clone.token = token
	if c.logs != nil {
		clone.logs = cache.New(c.logTTL, 2*c.logTTL)
	}
	return &clone
}

// HasToken reports whether the client will send an Authorization header.
func (c *Client) HasToken() bool {
	return c.token != ""
}

// JobURL returns the web link for a job within a build.
func (c *Client) JobURL(org, pipeline string, number int, jobID string) string {
	return fmt.Sprintf("%s/%s/%s/builds/%d#%s", c.webURL, org, pipeline, number, jobID)
}

// do performs one API request and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, operation, method, path string, query url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveBuildkiteRequest(operation, 0)
		return fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer resp.Body.Close()
	metrics.ObserveBuildkiteRequest(operation, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", operation, err)
	}

	logger.WithComponent("buildkite").WithFields(logrus.Fields{
		"operation": operation,
		"method":    method,
		"path":      path,
		"status":    resp.StatusCode,
		"latency":   time.Since(start).String(),
	}).Debug("Buildkite API call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Operation: operation, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", operation, err)
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for _, key := range []string{"BUILDKITE_ACCESS_TOKEN", "BUILDKITE_API_URL", "PORT", "HTTP_TIMEOUT", "BUILDKITE_RPS", "LOG_CACHE_TTL", "JWT_SECRET"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.buildkite.com/v2", cfg.Buildkite.APIURL)
	assert.Equal(t, "https://buildkite.com", cfg.Buildkite.WebURL)
	assert.Equal(t, 30*time.Second, cfg.Buildkite.Timeout)
	assert.Equal(t, 5.0, cfg.Buildkite.RequestsPerSecond)
	assert.Equal(t, 10, cfg.Buildkite.Burst)
	assert.Equal(t, 5*time.Minute, cfg.Buildkite.LogCacheTTL)
	assert.Equal(t, "63330", cfg.Server.Port)
	assert.False(t, cfg.HasToken())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("BUILDKITE_ACCESS_TOKEN", "bkua_test")
	t.Setenv("BUILDKITE_API_URL", "http://localhost:9999/v2/")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("BUILDKITE_RPS", "2.5")
	t.Setenv("PORT", "8080")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.HasToken())
	assert.Equal(t, "bkua_test", cfg.Buildkite.Token)
	assert.Equal(t, "http://localhost:9999/v2", cfg.Buildkite.APIURL)
	assert.Equal(t, 5*time.Second, cfg.Buildkite.Timeout)
	assert.Equal(t, 2.5, cfg.Buildkite.RequestsPerSecond)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Server.JWTSecret)
}

func TestLoad_EnvFile(t *testing.T) {
	os.Unsetenv("LOG_LEVEL")
	t.Cleanup(func() { os.Unsetenv("LOG_LEVEL") })

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=DEBUG\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", cfg.Log.Level)
}

func TestLoad_MissingEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Buildkite: BuildkiteConfig{
			APIURL:            "https://api.buildkite.com/v2",
			Timeout:           time.Second,
			RequestsPerSecond: 1,
			Burst:             1,
		}}
	}

	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Buildkite.Timeout = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Buildkite.RequestsPerSecond = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Buildkite.Burst = -1
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Buildkite.APIURL = ""
	assert.Error(t, cfg.Validate())
}

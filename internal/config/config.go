package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime settings. It is built once at startup and passed
// explicitly to the components that need it.
type Config struct {
	Buildkite BuildkiteConfig
	Server    ServerConfig
	Log       LogConfig
	Extract   ExtractConfig
}

// BuildkiteConfig configures the outbound CI API client.
type BuildkiteConfig struct {
	Token             string
	APIURL            string
	WebURL            string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	LogCacheTTL       time.Duration
}

// ServerConfig configures the HTTP facade.
type ServerConfig struct {
	Port       string
	GinMode    string
	CORSOrigin string
	JWTSecret  string
}

// ExtractConfig configures the extraction cascade.
type ExtractConfig struct {
	FingerprintsFile string
}

// LogConfig configures application logging.
type LogConfig struct {
	Level string
	Dir   string
	JSON  bool
}

// Load reads an optional .env file and then the process environment.
// Missing .env files are not an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := &Config{
		Buildkite: BuildkiteConfig{
			Token:             v.GetString("BUILDKITE_ACCESS_TOKEN"),
			APIURL:            strings.TrimRight(v.GetString("BUILDKITE_API_URL"), "/"),
			WebURL:            strings.TrimRight(v.GetString("BUILDKITE_WEB_URL"), "/"),
			Timeout:           v.GetDuration("HTTP_TIMEOUT"),
			RequestsPerSecond: v.GetFloat64("BUILDKITE_RPS"),
			Burst:             v.GetInt("BUILDKITE_BURST"),
			LogCacheTTL:       v.GetDuration("LOG_CACHE_TTL"),
		},
		Server: ServerConfig{
			Port:       v.GetString("PORT"),
			GinMode:    v.GetString("GIN_MODE"),
			CORSOrigin: v.GetString("CORS_ORIGIN"),
			JWTSecret:  v.GetString("JWT_SECRET"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
			Dir:   v.GetString("LOG_DIR"),
			JSON:  v.GetBool("LOG_JSON"),
		},
		Extract: ExtractConfig{
			FingerprintsFile: v.GetString("FINGERPRINTS_FILE"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("BUILDKITE_API_URL", "https://api.buildkite.com/v2")
	v.SetDefault("BUILDKITE_WEB_URL", "https://buildkite.com")
	v.SetDefault("HTTP_TIMEOUT", 30*time.Second)
	v.SetDefault("BUILDKITE_RPS", 5.0)
	v.SetDefault("BUILDKITE_BURST", 10)
	v.SetDefault("LOG_CACHE_TTL", 5*time.Minute)
	v.SetDefault("PORT", "63330")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("CORS_ORIGIN", "*")
	v.SetDefault("LOG_LEVEL", "INFO")
}

// Validate checks value ranges. A missing Buildkite token is allowed because
// requests may carry their own.
func (c *Config) Validate() error {
	if c.Buildkite.APIURL == "" {
		return fmt.Errorf("BUILDKITE_API_URL must not be empty")
	}
	if c.Buildkite.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.Buildkite.Timeout)
	}
	if c.Buildkite.RequestsPerSecond <= 0 {
		return fmt.Errorf("BUILDKITE_RPS must be positive, got %v", c.Buildkite.RequestsPerSecond)
	}
	if c.Buildkite.Burst <= 0 {
		return fmt.Errorf("BUILDKITE_BURST must be positive, got %d", c.Buildkite.Burst)
	}
	if c.Buildkite.LogCacheTTL < 0 {
		return fmt.Errorf("LOG_CACHE_TTL must not be negative, got %s", c.Buildkite.LogCacheTTL)
	}
	return nil
}

// HasToken reports whether a default Buildkite token is configured.
func (c *Config) HasToken() bool {
	return c.Buildkite.Token != ""
}

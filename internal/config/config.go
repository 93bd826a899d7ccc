package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration shared by the diary service, CLI and MCP server.
// Environment variables are parsed from the DIARY_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string      `envconfig:"LOG_LEVEL" default:"info"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Row store: "postgres" or "sqlite"; "auto" picks postgres when a DSN is set.
	DBDriver    string `envconfig:"DB_DRIVER" default:"auto"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"./data/diary.db"`

	// Hosted auth service (GoTrue REST API)
	AuthURL    string `envconfig:"AUTH_URL" default:""`
	AuthAPIKey string `envconfig:"AUTH_API_KEY" default:""`
	JWTSecret  string `envconfig:"JWT_SECRET" default:""`

	// Generative AI
	GeminiAPIKey       string `envconfig:"GEMINI_API_KEY" default:""`
	GeminiBaseURL      string `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	ModelFast          string `envconfig:"MODEL_FAST" default:"gemini-2.5-flash"`
	ModelDeep          string `envconfig:"MODEL_DEEP" default:"gemini-2.5-pro"`
	ModelImageEdit     string `envconfig:"MODEL_IMAGE_EDIT" default:"gemini-2.5-flash-image"`
	ModelImageGen      string `envconfig:"MODEL_IMAGE_GEN" default:"imagen-4.0-generate-001"`
	DeepThinkingBudget int    `envconfig:"DEEP_THINKING_BUDGET" default:"32768"`
	AITimeoutSeconds   int    `envconfig:"AI_TIMEOUT_SECONDS" default:"90"`

	// Object storage for large media (S3-compatible). Empty bucket disables offload.
	MediaBucket       string `envconfig:"MEDIA_BUCKET" default:""`
	MediaEndpoint     string `envconfig:"MEDIA_ENDPOINT" default:""`
	MediaRegion       string `envconfig:"MEDIA_REGION" default:"us-east-1"`
	MediaAccessKeyID  string `envconfig:"MEDIA_ACCESS_KEY_ID" default:""`
	MediaSecretKey    string `envconfig:"MEDIA_SECRET_ACCESS_KEY" default:""`
	MediaOffloadBytes int    `envconfig:"MEDIA_OFFLOAD_BYTES" default:"1048576"`
	MediaUsePathStyle bool   `envconfig:"MEDIA_USE_PATH_STYLE" default:"true"`

	// Health and shutdown
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"2"`
	ShutdownTimeoutSeconds    int `envconfig:"SHUTDOWN_TIMEOUT_SECONDS" default:"30"`
}

// ResolveDefaults validates the driver choice and derives it when set to "auto".
func (c *Config) ResolveDefaults() error {
	if c.DBDriver == "" || c.DBDriver == "auto" {
		if c.PostgresDSN != "" {
			c.DBDriver = "postgres"
		} else {
			c.DBDriver = "sqlite"
		}
	}

	switch c.DBDriver {
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("DB_DRIVER=postgres requires POSTGRES_DSN")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("DB_DRIVER=sqlite requires SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	return nil
}

// New creates a new Config by parsing environment variables
// Example: DIARY_HTTP_PORT, DIARY_GEMINI_API_KEY
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("DIARY", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Bool("postgres_dsn_present", cfg.PostgresDSN != "").
		Bool("auth_configured", cfg.AuthURL != "").
		Bool("gemini_key_present", cfg.GeminiAPIKey != "").
		Str("model_fast", cfg.ModelFast).
		Str("model_deep", cfg.ModelDeep).
		Str("media_bucket", cfg.MediaBucket).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	return &Config{
		Environment:               EnvTesting,
		LogLevel:                  "debug",
		HTTPPort:                  8080,
		DBDriver:                  "sqlite",
		SQLitePath:                ":memory:",
		GeminiBaseURL:             "http://127.0.0.1:0",
		ModelFast:                 "gemini-2.5-flash",
		ModelDeep:                 "gemini-2.5-pro",
		ModelImageEdit:            "gemini-2.5-flash-image",
		ModelImageGen:             "imagen-4.0-generate-001",
		DeepThinkingBudget:        32768,
		AITimeoutSeconds:          5,
		MediaRegion:               "us-east-1",
		MediaOffloadBytes:         1 << 20,
		HealthIntervalSeconds:     1,
		HealthProbeTimeoutSeconds: 1,
		ShutdownTimeoutSeconds:    1,
	}
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// AITimeout returns the per-call deadline for generative AI requests.
func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AITimeoutSeconds) * time.Second
}

// MediaOffloadEnabled reports whether large binaries go to object storage.
func (c *Config) MediaOffloadEnabled() bool {
	return c.MediaBucket != ""
}

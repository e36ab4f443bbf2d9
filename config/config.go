// Package config handles loading and validation of application configuration
// from environment variables.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/risiti/risiti-backend/logger"
	"github.com/spf13/viper"
)

// Environment represents the application's running environment (development or production).
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT"`
	Port           string      `mapstructure:"PORT"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS"`
	// RunnerSecret guards the external queue-runner trigger endpoint.
	RunnerSecret string `mapstructure:"RUNNER_SECRET"`
}

// DatabaseConfig holds PostgreSQL database connection details.
type DatabaseConfig struct {
	Host         string `mapstructure:"HOST"`
	Port         int    `mapstructure:"PORT"`
	User         string `mapstructure:"USER"`
	Password     string `mapstructure:"PASSWORD"`
	Name         string `mapstructure:"NAME"`
	SSLMode      string `mapstructure:"SSL_MODE"`
	MaxOpenConns int    `mapstructure:"MAX_OPEN_CONNS"`
}

// ConnString returns a key-value connection string for pgx.
func (c *DatabaseConfig) ConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// URL returns the postgres:// URL form, which the migration tooling expects.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User), url.QueryEscape(c.Password),
		c.Host, c.Port, c.Name, c.SSLMode)
}

// StorageConfig holds local storage settings for uploaded receipt photos.
type StorageConfig struct {
	UploadDir string `mapstructure:"UPLOAD_DIR"`
	// MaxUploadBytes bounds the accepted photo size.
	MaxUploadBytes int64 `mapstructure:"MAX_UPLOAD_BYTES"`
}

// PipelineConfig holds the tunables of the submission processing pipeline.
// These are deployment knobs, not protocol invariants.
type PipelineConfig struct {
	// MaxFetchRetries bounds retries beyond the first portal fetch attempt.
	MaxFetchRetries int `mapstructure:"MAX_FETCH_RETRIES"`
	// FetchRetryDelaySeconds is the fixed sleep between portal fetch attempts.
	FetchRetryDelaySeconds int `mapstructure:"FETCH_RETRY_DELAY_SECONDS"`
	// FetchTimeoutSeconds is the per-call HTTP timeout against the portal.
	FetchTimeoutSeconds int `mapstructure:"FETCH_TIMEOUT_SECONDS"`
	// StaleJobThresholdMinutes decides when a processing submission is
	// considered stuck and rescued back to queued.
	StaleJobThresholdMinutes int `mapstructure:"STALE_JOB_THRESHOLD_MINUTES"`
}

func (c *PipelineConfig) FetchRetryDelay() time.Duration {
	return time.Duration(c.FetchRetryDelaySeconds) * time.Second
}

func (c *PipelineConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

func (c *PipelineConfig) StaleJobThreshold() time.Duration {
	return time.Duration(c.StaleJobThresholdMinutes) * time.Minute
}

// StreamConfig holds settings for the SSE live stream.
type StreamConfig struct {
	// BufferSize bounds each subscriber's channel; a full subscriber is
	// dropped rather than blocking the publisher.
	BufferSize int `mapstructure:"BUFFER_SIZE"`
	// KeepAliveSeconds is the idle window before a keep-alive comment is sent.
	KeepAliveSeconds int `mapstructure:"KEEP_ALIVE_SECONDS"`
}

func (c *StreamConfig) KeepAlive() time.Duration {
	return time.Duration(c.KeepAliveSeconds) * time.Second
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"SERVER"`
	Database DatabaseConfig `mapstructure:"DATABASE"`
	Storage  StorageConfig  `mapstructure:"STORAGE"`
	Pipeline PipelineConfig `mapstructure:"PIPELINE"`
	Stream   StreamConfig   `mapstructure:"STREAM"`
}

// IsProduction returns true if the application is running in production environment.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// bindEnvVars binds multiple environment variables to config keys.
// Format: []{configKey, envVar}
func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables using Viper,
// sets default values, binds environment variables to config struct fields,
// unmarshals the configuration, and validates it.
func LoadConfig() (*Config, error) {
	v := viper.New()
	log := logger.GetLogger()

	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SERVER.RUNNER_SECRET", "")
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "")
	v.SetDefault("DATABASE.NAME", "risiti_dev")
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("DATABASE.MAX_OPEN_CONNS", 5)
	v.SetDefault("STORAGE.UPLOAD_DIR", "./data/uploads")
	v.SetDefault("STORAGE.MAX_UPLOAD_BYTES", int64(10<<20))
	v.SetDefault("PIPELINE.MAX_FETCH_RETRIES", 9)
	v.SetDefault("PIPELINE.FETCH_RETRY_DELAY_SECONDS", 60)
	v.SetDefault("PIPELINE.FETCH_TIMEOUT_SECONDS", 30)
	v.SetDefault("PIPELINE.STALE_JOB_THRESHOLD_MINUTES", 10)
	v.SetDefault("STREAM.BUFFER_SIZE", 10)
	v.SetDefault("STREAM.KEEP_ALIVE_SECONDS", 30)
	v.SetDefault("LOG_LEVEL", "info")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envBindings := [][2]string{
		// Server config
		{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
		{"SERVER.PORT", "PORT"},
		{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
		{"SERVER.RUNNER_SECRET", "TASK_RUNNER_SECRET_KEY"},
		// Database config
		{"DATABASE.HOST", "DB_HOST"},
		{"DATABASE.PORT", "DB_PORT"},
		{"DATABASE.USER", "DB_USER"},
		{"DATABASE.PASSWORD", "DB_PASSWORD"},
		{"DATABASE.NAME", "DB_NAME"},
		{"DATABASE.SSL_MODE", "DB_SSL_MODE"},
		// Storage config
		{"STORAGE.UPLOAD_DIR", "UPLOAD_DIR"},
		{"STORAGE.MAX_UPLOAD_BYTES", "MAX_UPLOAD_BYTES"},
		// Pipeline config
		{"PIPELINE.MAX_FETCH_RETRIES", "PIPELINE_MAX_FETCH_RETRIES"},
		{"PIPELINE.FETCH_RETRY_DELAY_SECONDS", "PIPELINE_FETCH_RETRY_DELAY_SECONDS"},
		{"PIPELINE.FETCH_TIMEOUT_SECONDS", "PIPELINE_FETCH_TIMEOUT_SECONDS"},
		{"PIPELINE.STALE_JOB_THRESHOLD_MINUTES", "PIPELINE_STALE_JOB_THRESHOLD_MINUTES"},
		// Stream config
		{"STREAM.BUFFER_SIZE", "STREAM_BUFFER_SIZE"},
		{"STREAM.KEEP_ALIVE_SECONDS", "STREAM_KEEP_ALIVE_SECONDS"},
	}

	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	log.Infow("Configuration loaded",
		"environment", v.GetString("SERVER.ENVIRONMENT"),
		"server_port", v.GetString("SERVER.PORT"),
		"db_host", v.GetString("DATABASE.HOST"),
		"upload_dir", v.GetString("STORAGE.UPLOAD_DIR"),
		"max_fetch_retries", v.GetInt("PIPELINE.MAX_FETCH_RETRIES"),
		"stale_job_threshold_minutes", v.GetInt("PIPELINE.STALE_JOB_THRESHOLD_MINUTES"),
	)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Environment != EnvDevelopment && cfg.Server.Environment != EnvProduction {
		return fmt.Errorf("invalid environment: %s", cfg.Server.Environment)
	}
	if cfg.IsProduction() && cfg.Server.RunnerSecret == "" {
		return fmt.Errorf("TASK_RUNNER_SECRET_KEY is required in production")
	}
	if cfg.Pipeline.MaxFetchRetries < 0 {
		return fmt.Errorf("PIPELINE_MAX_FETCH_RETRIES must be >= 0")
	}
	if cfg.Pipeline.FetchRetryDelaySeconds < 0 {
		return fmt.Errorf("PIPELINE_FETCH_RETRY_DELAY_SECONDS must be >= 0")
	}
	if cfg.Pipeline.StaleJobThresholdMinutes <= 0 {
		return fmt.Errorf("PIPELINE_STALE_JOB_THRESHOLD_MINUTES must be > 0")
	}
	if cfg.Stream.BufferSize <= 0 {
		return fmt.Errorf("STREAM_BUFFER_SIZE must be > 0")
	}
	return nil
}

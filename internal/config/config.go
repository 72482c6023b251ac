package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Port string `toml:"port" validate:"required,numeric"`

	// Auth for the HTTP API
	APIKey string `toml:"api_key"`

	// Worker pool
	WorkerCount  int `toml:"worker_count" validate:"min=1,max=64"`
	MaxQueueSize int `toml:"max_queue_size" validate:"min=1"`

	// Upload limits
	MaxUploadBytes int64 `toml:"max_upload_bytes" validate:"min=1"`

	// Job state
	JobTTL time.Duration `toml:"-" validate:"min=1s"`

	// PDF
	PDFFallbackPdftotext bool `toml:"pdf_fallback_pdftotext"`

	// Logging
	LogLevel  string `toml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `toml:"log_format" validate:"oneof=json text"`

	// Default console rendering
	OutputFormat string `toml:"output_format" validate:"oneof=table json"`

	// API rate limiting; zero RPS disables it
	RateLimitRPS   float64 `toml:"rate_limit_rps" validate:"min=0"`
	RateLimitBurst int     `toml:"rate_limit_burst" validate:"min=0"`

	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:                 "8090",
		WorkerCount:          2,
		MaxQueueSize:         50,
		MaxUploadBytes:       10485760, // 10MB
		JobTTL:               1 * time.Hour,
		PDFFallbackPdftotext: true,
		LogLevel:             "info",
		LogFormat:            "json",
		OutputFormat:         "table",
		RateLimitRPS:         5,
		RateLimitBurst:       10,
	}
}

// Load builds the configuration from defaults, the optional TOML file at path
// and the environment, in increasing order of precedence.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		path = os.Getenv("I94DAYS_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	// Durations are written as strings like "30m".
	var durations struct {
		JobTTL string `toml:"job_ttl"`
	}
	if err := toml.Unmarshal(data, &durations); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if durations.JobTTL != "" {
		d, err := time.ParseDuration(durations.JobTTL)
		if err != nil {
			return fmt.Errorf("parse config %s: job_ttl: %w", path, err)
		}
		c.JobTTL = d
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = envOr("PORT", c.Port)
	c.APIKey = envOr("I94DAYS_API_KEY", c.APIKey)

	c.WorkerCount = envInt("WORKER_COUNT", c.WorkerCount)
	c.MaxQueueSize = envInt("MAX_QUEUE_SIZE", c.MaxQueueSize)
	c.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", c.MaxUploadBytes)
	c.JobTTL = envDuration("JOB_TTL", c.JobTTL)
	c.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", c.PDFFallbackPdftotext)

	c.LogLevel = strings.ToLower(envOr("LOG_LEVEL", c.LogLevel))
	c.LogFormat = strings.ToLower(envOr("LOG_FORMAT", c.LogFormat))
	c.OutputFormat = strings.ToLower(envOr("OUTPUT_FORMAT", c.OutputFormat))

	c.RateLimitRPS = envFloat("RATE_LIMIT_RPS", c.RateLimitRPS)
	c.RateLimitBurst = envInt("RATE_LIMIT_BURST", c.RateLimitBurst)

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.CORSAllowedOrigins = splitList(v)
	}
}

var validate = validator.New()

// Validate checks field ranges. It does not require an API key; see ValidateServer.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config field %s: failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_BURST must be at least 1 when RATE_LIMIT_RPS is set")
	}
	return nil
}

// ValidateServer checks the settings the HTTP API needs on top of Validate.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("I94DAYS_API_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"fmt"
	"time"

	redisclient "fecharvest/internal/infra/redis"
	"fecharvest/internal/loader"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	API       APIConfig          `yaml:"api"`
	RateLimit RateLimitConfig    `yaml:"rate_limit"`
	Retry     RetryConfig        `yaml:"retry"`
	Paths     PathsConfig        `yaml:"paths"`
	Server    ServerConfig       `yaml:"server"`
	Redis     redisclient.Config `yaml:"redis"`
	Database  loader.Config      `yaml:"database"`
	Logging   LoggingConfig      `yaml:"logging"`
}

// Duration wraps time.Duration so YAML values like "30s" parse with yaml.v2.
type Duration time.Duration

// UnmarshalYAML parses either a duration string ("90s") or a bare number of
// seconds.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(time.Duration(v) * time.Second)
	case float64:
		*d = Duration(time.Duration(v * float64(time.Second)))
	default:
		return fmt.Errorf("invalid duration value: %v", raw)
	}
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// APIConfig holds FEC API access settings.
type APIConfig struct {
	BaseURL     string   `yaml:"base_url"`
	Key         string   `yaml:"key"`
	CallTimeout Duration `yaml:"call_timeout"`
	PageSize    int      `yaml:"page_size"`
}

// RateLimitConfig controls outbound request pacing.
type RateLimitConfig struct {
	// MinInterval is the minimum spacing between any two outbound
	// requests. Tuned conservatively below the hourly quota rather than
	// trusted from the documented limit.
	MinInterval Duration `yaml:"min_interval"`
}

// RetryConfig controls backoff and pass-level retry behavior.
type RetryConfig struct {
	MaxPasses        int      `yaml:"max_passes"`         // retry passes after the main pass
	RateLimitBackoff Duration `yaml:"rate_limit_backoff"` // first backoff step on 429
	MaxBackoffSteps  int      `yaml:"max_backoff_steps"`  // doubling steps before handing back
}

// PathsConfig locates the checkpoint and output artifacts.
type PathsConfig struct {
	CheckpointDir string `yaml:"checkpoint_dir"`
	OutputDir     string `yaml:"output_dir"`
}

// ServerConfig holds the status/metrics HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"` // 0 disables the server
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

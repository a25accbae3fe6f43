package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "https://api.open.fec.gov/v1"
	}
	if cfg.API.CallTimeout == 0 {
		cfg.API.CallTimeout = Duration(30 * time.Second)
	}
	if cfg.API.PageSize == 0 {
		cfg.API.PageSize = 100
	}
	if cfg.RateLimit.MinInterval == 0 {
		// 1000 requests/hour documented; 4s spacing sustains 900/hour.
		cfg.RateLimit.MinInterval = Duration(4 * time.Second)
	}
	if cfg.Retry.MaxPasses == 0 {
		cfg.Retry.MaxPasses = 3
	}
	if cfg.Retry.RateLimitBackoff == 0 {
		cfg.Retry.RateLimitBackoff = Duration(60 * time.Second)
	}
	if cfg.Retry.MaxBackoffSteps == 0 {
		cfg.Retry.MaxBackoffSteps = 3
	}
	if cfg.Paths.CheckpointDir == "" {
		cfg.Paths.CheckpointDir = "data/checkpoints"
	}
	if cfg.Paths.OutputDir == "" {
		cfg.Paths.OutputDir = "data/output"
	}
}

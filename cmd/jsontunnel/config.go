package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
)

// envConfig is read from the environment. Flags override it.
type envConfig struct {
	APIKey      string `env:"OPENAI_API_KEY"`
	BaseURL     string `env:"OPENAI_API_BASE_URL"`
	Model       string `env:"JSONTUNNEL_MODEL,default=gpt-4o-mini"`
	MaxRetries  int    `env:"JSONTUNNEL_MAX_RETRIES,default=2"`
	Concurrency int    `env:"JSONTUNNEL_CONCURRENCY,default=4"`
	// Timeout bounds a single model call, streamed or not.
	Timeout time.Duration `env:"JSONTUNNEL_TIMEOUT,default=2m"`
	// HTTPRetries is how often a call failing with a transient HTTP status
	// is re-sent. Zero disables it.
	HTTPRetries int `env:"JSONTUNNEL_HTTP_RETRIES,default=3"`
	// LogFile switches logging from stderr to a rotated file.
	LogFile string `env:"JSONTUNNEL_LOG_FILE"`
}

func loadConfig() (envConfig, error) {
	var cfg envConfig
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return cfg, fmt.Errorf("reading environment: %w", err)
	}
	return cfg, nil
}

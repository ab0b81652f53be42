// Package config holds the analysis settings and loads them from YAML.
package config

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// MinTimeout is the smallest accepted per-request timeout.
const MinTimeout = 100 * time.Millisecond

// Config represents the analysis configuration.
type Config struct {
	// Segments is the number of leading segments sampled per variant (0 = none).
	Segments int `yaml:"segments"`

	// Timeout bounds each HTTP attempt.
	Timeout time.Duration `yaml:"timeout"`

	// Retries is the number of retries on transient server errors.
	Retries int `yaml:"retries"`

	BackoffMin    time.Duration `yaml:"backoff_min"`
	BackoffMax    time.Duration `yaml:"backoff_max"`
	RetryStatuses []int         `yaml:"retry_statuses"`

	UserAgent string `yaml:"user_agent"`

	// Concurrency bounds parallel segment fetches within a variant.
	Concurrency int `yaml:"concurrency"`

	// ContinueOnError records failed segment fetches instead of aborting.
	ContinueOnError bool `yaml:"continue_on_error"`

	Format      string `yaml:"format"`
	MetricsFile string `yaml:"metrics_file"`
}

// Default returns configuration with sensible defaults.
func Default(version string) *Config {
	return &Config{
		Segments:      0,
		Timeout:       10 * time.Second,
		Retries:       2,
		BackoffMin:    300 * time.Millisecond,
		BackoffMax:    5 * time.Second,
		RetryStatuses: []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
		UserAgent:     "hls-health/" + version,
		Concurrency:   1,
		Format:        FormatText,
	}
}

// Load reads path into a copy of base. Keys absent from the file keep
// their value from base.
func Load(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := *base
	cfg.RetryStatuses = append([]int(nil), base.RetryStatuses...)
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the configuration and clamps out-of-range values.
func (c *Config) Validate() error {
	switch c.Format {
	case "":
		c.Format = FormatText
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("unknown output format %q", c.Format)
	}

	if c.BackoffMin < 0 || c.BackoffMax < 0 {
		return fmt.Errorf("backoff durations must not be negative")
	}
	if c.BackoffMax < c.BackoffMin {
		return fmt.Errorf("backoff_max %s is below backoff_min %s", c.BackoffMax, c.BackoffMin)
	}

	for _, s := range c.RetryStatuses {
		if s < 100 || s > 599 {
			return fmt.Errorf("invalid retry status %d", s)
		}
	}

	// Clamp like the command line always has
	if c.Segments < 0 {
		c.Segments = 0
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.Timeout < MinTimeout {
		c.Timeout = MinTimeout
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}

	return nil
}

// Package config loads and validates the CLI configuration from a YAML
// file with EXPLORIUM_* environment-variable overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Sternrassler/explorium-cli/pkg/batch"
	"github.com/Sternrassler/explorium-cli/pkg/client"
	"gopkg.in/yaml.v3"
)

// Config is the top-level CLI configuration.
type Config struct {
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	DefaultOutput   string `yaml:"default_output"`
	DefaultPageSize int    `yaml:"default_page_size"`

	Transport TransportConfig `yaml:"transport"`
	Batch     BatchConfig     `yaml:"batch"`
	Search    SearchConfig    `yaml:"search"`
	Cache     CacheConfig     `yaml:"cache"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// TransportConfig controls single HTTP calls.
type TransportConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	RetryBackoff   float64       `yaml:"retry_backoff"`

	// RateLimitRPS paces requests client-side; 0 disables pacing.
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
}

// BatchConfig controls the batched match and enrich executors.
type BatchConfig struct {
	Size           int           `yaml:"size"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	RetryBackoff   float64       `yaml:"retry_backoff"`
}

// SearchConfig controls fan-out search.
type SearchConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// CacheConfig holds the optional Redis response cache settings.
type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
}

// LoggingConfig controls the log level and format (pretty or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// DefaultPath returns ~/.explorium/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".explorium", "config.yaml")
	}
	return filepath.Join(home, ".explorium", "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	retry := client.DefaultRetryConfig()
	batchRetry := client.BatchRetryConfig()
	return &Config{
		BaseURL:         client.DefaultBaseURL,
		DefaultOutput:   "json",
		DefaultPageSize: 100,
		Transport: TransportConfig{
			Timeout:        client.DefaultTimeout,
			MaxRetries:     retry.MaxRetries,
			RetryBaseDelay: retry.BaseDelay,
			RetryBackoff:   retry.BackoffFactor,
		},
		Batch: BatchConfig{
			Size:           batch.DefaultBatchSize,
			MaxRetries:     batchRetry.MaxRetries,
			RetryBaseDelay: batchRetry.BaseDelay,
			RetryBackoff:   batchRetry.BackoffFactor,
		},
		Search: SearchConfig{
			Concurrency: 5,
		},
		Cache: CacheConfig{
			TTL: time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "pretty",
		},
	}
}

// Load reads the YAML file at path (DefaultPath when empty) over the
// defaults and applies environment overrides. A missing file is not an
// error.
func Load(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// applyEnvOverrides reads EXPLORIUM_* environment variables and overrides
// the corresponding config fields.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("EXPLORIUM_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("EXPLORIUM_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("EXPLORIUM_DEFAULT_OUTPUT"); v != "" {
		cfg.DefaultOutput = v
	}
	if v := os.Getenv("EXPLORIUM_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("EXPLORIUM_PAGE_SIZE: %w", err)
		}
		cfg.DefaultPageSize = n
	}
	if v := os.Getenv("EXPLORIUM_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("EXPLORIUM_BATCH_SIZE: %w", err)
		}
		cfg.Batch.Size = n
	}
	if v := os.Getenv("EXPLORIUM_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("EXPLORIUM_CONCURRENCY: %w", err)
		}
		cfg.Search.Concurrency = n
	}
	if v := os.Getenv("EXPLORIUM_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("EXPLORIUM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("EXPLORIUM_METRICS_TEXTFILE"); v != "" {
		cfg.Metrics.Textfile = v
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url %q is not an absolute URL", c.BaseURL)
	}
	switch c.DefaultOutput {
	case "json", "table", "csv":
	default:
		return fmt.Errorf("default_output must be json, table or csv, got %q", c.DefaultOutput)
	}
	if c.DefaultPageSize < 1 {
		return fmt.Errorf("default_page_size must be positive, got %d", c.DefaultPageSize)
	}
	if c.Batch.Size < 1 || c.Batch.Size > batch.MaxBatchSize {
		return fmt.Errorf("batch.size must be between 1 and %d, got %d", batch.MaxBatchSize, c.Batch.Size)
	}
	if c.Transport.MaxRetries < 0 || c.Batch.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	if c.Transport.RateLimitRPS < 0 {
		return fmt.Errorf("transport.rate_limit_rps must not be negative")
	}
	if c.Search.Concurrency < 1 {
		return fmt.Errorf("search.concurrency must be positive, got %d", c.Search.Concurrency)
	}
	switch c.Logging.Format {
	case "pretty", "json":
	default:
		return fmt.Errorf("logging.format must be pretty or json, got %q", c.Logging.Format)
	}
	return nil
}

// TransportRetry returns the transport retry policy.
func (c *Config) TransportRetry() client.RetryConfig {
	retry := client.DefaultRetryConfig()
	retry.MaxRetries = c.Transport.MaxRetries
	retry.BaseDelay = c.Transport.RetryBaseDelay
	retry.BackoffFactor = c.Transport.RetryBackoff
	return retry
}

// BatchRetry returns the retry policy applied around whole batches.
func (c *Config) BatchRetry() client.RetryConfig {
	retry := client.BatchRetryConfig()
	retry.MaxRetries = c.Batch.MaxRetries
	retry.BaseDelay = c.Batch.RetryBaseDelay
	retry.BackoffFactor = c.Batch.RetryBackoff
	return retry
}

// MaskedAPIKey returns the key with its middle elided.
func (c *Config) MaskedAPIKey() string {
	switch {
	case c.APIKey == "":
		return ""
	case len(c.APIKey) <= 8:
		return "****"
	default:
		return c.APIKey[:4] + "..." + c.APIKey[len(c.APIKey)-4:]
	}
}

// Save writes the configuration to path (DefaultPath when empty),
// creating the directory with 0700 and the file with 0600.
func (c *Config) Save(path string) (string, error) {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("writing config file %s: %w", path, err)
	}
	return path, nil
}

// Init writes a fresh default configuration holding apiKey.
func Init(path, apiKey string) (string, error) {
	if apiKey == "" {
		return "", fmt.Errorf("api key is required")
	}
	cfg := Default()
	cfg.APIKey = apiKey
	return cfg.Save(path)
}

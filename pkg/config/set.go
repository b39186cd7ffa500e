package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// ErrUnknownKey is returned by Set for keys outside the known-key table.
var ErrUnknownKey = errors.New("unknown config key")

type setter func(cfg *Config, value string) error

func stringField(field func(*Config) *string) setter {
	return func(cfg *Config, value string) error {
		*field(cfg) = value
		return nil
	}
}

func intField(field func(*Config) *int) setter {
	return func(cfg *Config, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("expected an integer: %w", err)
		}
		*field(cfg) = n
		return nil
	}
}

func floatField(field func(*Config) *float64) setter {
	return func(cfg *Config, value string) error {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("expected a number: %w", err)
		}
		*field(cfg) = f
		return nil
	}
}

func durationField(field func(*Config) *time.Duration) setter {
	return func(cfg *Config, value string) error {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("expected a duration such as 30s: %w", err)
		}
		*field(cfg) = d
		return nil
	}
}

var knownKeys = map[string]setter{
	"api_key":                    stringField(func(c *Config) *string { return &c.APIKey }),
	"base_url":                   stringField(func(c *Config) *string { return &c.BaseURL }),
	"default_output":             stringField(func(c *Config) *string { return &c.DefaultOutput }),
	"default_page_size":          intField(func(c *Config) *int { return &c.DefaultPageSize }),
	"transport.timeout":          durationField(func(c *Config) *time.Duration { return &c.Transport.Timeout }),
	"transport.max_retries":      intField(func(c *Config) *int { return &c.Transport.MaxRetries }),
	"transport.retry_base_delay": durationField(func(c *Config) *time.Duration { return &c.Transport.RetryBaseDelay }),
	"transport.retry_backoff":    floatField(func(c *Config) *float64 { return &c.Transport.RetryBackoff }),
	"transport.rate_limit_rps":   floatField(func(c *Config) *float64 { return &c.Transport.RateLimitRPS }),
	"batch.size":                 intField(func(c *Config) *int { return &c.Batch.Size }),
	"batch.max_retries":          intField(func(c *Config) *int { return &c.Batch.MaxRetries }),
	"batch.retry_base_delay":     durationField(func(c *Config) *time.Duration { return &c.Batch.RetryBaseDelay }),
	"batch.retry_backoff":        floatField(func(c *Config) *float64 { return &c.Batch.RetryBackoff }),
	"search.concurrency":         intField(func(c *Config) *int { return &c.Search.Concurrency }),
	"cache.redis_addr":           stringField(func(c *Config) *string { return &c.Cache.RedisAddr }),
	"cache.redis_password":       stringField(func(c *Config) *string { return &c.Cache.RedisPassword }),
	"cache.redis_db":             intField(func(c *Config) *int { return &c.Cache.RedisDB }),
	"cache.ttl":                  durationField(func(c *Config) *time.Duration { return &c.Cache.TTL }),
	"logging.level":              stringField(func(c *Config) *string { return &c.Logging.Level }),
	"logging.format":             stringField(func(c *Config) *string { return &c.Logging.Format }),
	"metrics.textfile":           stringField(func(c *Config) *string { return &c.Metrics.Textfile }),
}

// Keys returns the settable keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set updates one dotted key in the file at path and saves it. Environment
// overrides are not written back.
func Set(path, key, value string) (string, error) {
	set, ok := knownKeys[key]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownKey, key)
	}

	cfg, err := loadFile(path)
	if err != nil {
		return "", err
	}
	if err := set(cfg, value); err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	return cfg.Save(path)
}

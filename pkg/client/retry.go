package client

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// BaseDelay is the sleep before the first retry.
	BaseDelay time.Duration

	// BackoffFactor multiplies the delay after every retry.
	BackoffFactor float64

	// RetryableStatus lists the HTTP statuses worth another attempt.
	// Connection failures are always retried regardless of this list.
	RetryableStatus []int
}

// DefaultRetryConfig returns the transport level retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		BaseDelay:       1 * time.Second,
		BackoffFactor:   2.0,
		RetryableStatus: []int{429, 500, 502, 503, 504},
	}
}

// BatchRetryConfig returns the policy applied around whole batches.
// 422 is included because the API reports some transient upstream
// validation races with it.
func BatchRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		BaseDelay:       5 * time.Second,
		BackoffFactor:   2.0,
		RetryableStatus: []int{422, 429, 500, 502, 503, 504},
	}
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retrier runs calls with bounded exponential backoff. A Retrier holds no
// per-call state and is safe for concurrent use.
type Retrier struct {
	layer     string
	config    RetryConfig
	retryable map[int]struct{}
	sleep     SleepFunc
	logger    zerolog.Logger
}

// NewRetrier creates a retrier. layer labels logs and metrics
// ("transport", "batch").
func NewRetrier(layer string, cfg RetryConfig, logger zerolog.Logger) *Retrier {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffFactor < 1 {
		cfg.BackoffFactor = 1
	}

	retryable := make(map[int]struct{}, len(cfg.RetryableStatus))
	for _, code := range cfg.RetryableStatus {
		retryable[code] = struct{}{}
	}

	return &Retrier{
		layer:     layer,
		config:    cfg,
		retryable: retryable,
		sleep:     sleepContext,
		logger:    logger,
	}
}

// WithSleep returns a copy of the retrier that sleeps through fn (for testing).
func (r *Retrier) WithSleep(fn SleepFunc) *Retrier {
	cp := *r
	cp.sleep = fn
	return &cp
}

// Config returns the retry policy.
func (r *Retrier) Config() RetryConfig {
	return r.config
}

// IsRetryable reports whether err is worth another attempt under this
// retrier's policy.
func (r *Retrier) IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if isConnectionError(err) {
		return true
	}
	if code, ok := StatusCode(err); ok {
		_, retry := r.retryable[code]
		return retry
	}
	return false
}

// Do executes fn, retrying transient failures. Non-retryable failures are
// returned classified as *APIError; exhaustion wraps the last failure
// with ErrRetryExhausted.
func (r *Retrier) Do(ctx context.Context, fn func(context.Context) error) error {
	delay := r.config.BaseDelay

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				r.logger.Info().
					Str("layer", r.layer).
					Int("attempt", attempt+1).
					Msg("Call succeeded after retry")
			}
			return nil
		}

		class := errorClassOf(err)
		if !r.IsRetryable(err) {
			return classified(err)
		}

		if attempt >= r.config.MaxRetries {
			retryExhaustedTotal.WithLabelValues(r.layer).Inc()
			r.logger.Error().
				Err(err).
				Str("layer", r.layer).
				Str("error_class", string(class)).
				Int("attempts", attempt+1).
				Msg("Retry attempts exhausted")
			return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempt+1, classified(err))
		}

		status, _ := StatusCode(err)
		retriesTotal.WithLabelValues(r.layer, string(class)).Inc()
		retryBackoffSeconds.WithLabelValues(r.layer).Observe(delay.Seconds())
		r.logger.Warn().
			Str("layer", r.layer).
			Str("error_class", string(class)).
			Int("status", status).
			Int("attempt", attempt+1).
			Int("max_retries", r.config.MaxRetries).
			Dur("delay", delay).
			Msg("Transient failure, retrying")

		if err := r.sleep(ctx, delay); err != nil {
			r.logger.Warn().
				Str("layer", r.layer).
				Int("attempt", attempt+1).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %w", ErrContextCancelled, err)
		}

		delay = time.Duration(float64(delay) * r.config.BackoffFactor)
	}
}

// Retry runs fn through r and returns its value.
func Retry[T any](ctx context.Context, r *Retrier, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := r.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

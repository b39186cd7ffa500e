// Package ratelimit paces outgoing API requests on the client side.
// It does not read server rate-limit headers; 429 responses are handled by
// the retry layer in pkg/client.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var throttleWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "explorium_throttle_wait_seconds",
	Help:    "Time requests spent waiting for the client-side rate limiter",
	Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
})

// slowWait is the wait above which a throttle is logged.
const slowWait = 500 * time.Millisecond

// Limiter is a token bucket shared by every request of one client.
// A nil *Limiter never blocks.
type Limiter struct {
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewLimiter creates a limiter allowing rps requests per second with a
// burst of burst requests. rps <= 0 disables pacing and returns nil.
func NewLimiter(rps float64, burst int, logger zerolog.Logger) *Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

// Wait blocks until a request may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}

	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	waited := time.Since(start)
	throttleWaitSeconds.Observe(waited.Seconds())
	if waited > slowWait {
		l.logger.Debug().Dur("waited", waited).Msg("Request throttled by client-side limiter")
	}
	return nil
}

// Limit returns the configured rate in requests per second, 0 when disabled.
func (l *Limiter) Limit() float64 {
	if l == nil {
		return 0
	}
	return float64(l.limiter.Limit())
}

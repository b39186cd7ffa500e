package batch

import (
	"errors"
	"fmt"

	"github.com/Sternrassler/explorium-cli/pkg/client"
	"github.com/rs/zerolog"
)

const (
	// MaxBatchSize is the largest chunk the bulk endpoints accept.
	MaxBatchSize = 50

	// DefaultBatchSize is used when Config.BatchSize is zero.
	DefaultBatchSize = MaxBatchSize
)

// ErrInvalidBatchSize is returned for batch sizes below 1 or above MaxBatchSize.
var ErrInvalidBatchSize = errors.New("invalid batch size")

// Item is one match request payload, e.g. {"name": "Acme", "domain": "acme.com"}.
type Item = map[string]any

// Split partitions items into consecutive chunks of at most size elements.
// The chunks share the backing array of items; concatenated in order they
// reproduce items exactly.
func Split[T any](items []T, size int) ([][]T, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: %d (must be >= 1)", ErrInvalidBatchSize, size)
	}

	batches := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end:end])
	}
	return batches, nil
}

// Outcome is the result of a batched run. Err is nil on success. On abort
// Err is an *AbortError and Data holds the records secured before the
// failing batch.
type Outcome[T any] struct {
	Data T
	Err  error
}

// Failed reports whether the run was aborted.
func (o Outcome[T]) Failed() bool {
	return o.Err != nil
}

// AbortError reports a batched run stopped by an unrecoverable batch.
type AbortError struct {
	// Operation is "match" or "enrich".
	Operation string

	// Batch is the 1-based index of the failing batch.
	Batch   int
	Batches int

	// Completed counts records secured before the failure.
	Completed int

	// Failed counts the inputs of the failing batch.
	Failed int

	Err error
}

// Error implements the error interface.
func (e *AbortError) Error() string {
	return fmt.Sprintf("%s aborted at batch %d/%d (%d records secured, %d inputs failed): %v",
		e.Operation, e.Batch, e.Batches, e.Completed, e.Failed, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *AbortError) Unwrap() error {
	return e.Err
}

// Config holds executor settings.
type Config struct {
	// BatchSize is the number of inputs per API call (1..MaxBatchSize).
	BatchSize int

	// Retry is applied around every batch call.
	Retry client.RetryConfig
}

// DefaultConfig returns the batch size cap and the batch retry policy.
func DefaultConfig() Config {
	return Config{
		BatchSize: DefaultBatchSize,
		Retry:     client.BatchRetryConfig(),
	}
}

// Executor runs batched match and enrich workloads. It keeps no per-run
// state and may be reused.
type Executor struct {
	batchSize int
	retrier   *client.Retrier
	logger    zerolog.Logger
}

// NewExecutor creates an executor. Pass zerolog.Nop() to silence progress
// output; returned data does not depend on the logger.
func NewExecutor(cfg Config, logger zerolog.Logger) (*Executor, error) {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize < 1 || cfg.BatchSize > MaxBatchSize {
		return nil, fmt.Errorf("%w: %d (must be between 1 and %d)", ErrInvalidBatchSize, cfg.BatchSize, MaxBatchSize)
	}

	return &Executor{
		batchSize: cfg.BatchSize,
		retrier:   client.NewRetrier("batch", cfg.Retry, logger),
		logger:    logger,
	}, nil
}

// BatchSize returns the configured chunk size.
func (e *Executor) BatchSize() int {
	return e.batchSize
}

// SetSleep replaces the backoff sleep (for testing).
func (e *Executor) SetSleep(fn client.SleepFunc) {
	e.retrier = e.retrier.WithSleep(fn)
}

// hasValue reports whether v is present and not an empty string.
func hasValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	default:
		return true
	}
}

// idString renders an ID value as a map key.
func idString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

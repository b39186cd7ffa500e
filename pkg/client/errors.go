package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"unicode/utf8"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of API failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents connection, timeout and read errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents a response body that is not valid JSON.
	ErrorClassDecode ErrorClass = "decode"

	// ErrorClassUnknown represents failures that carry no status and no
	// recognizable network cause.
	ErrorClassUnknown ErrorClass = "unknown"
)

// maxSnippetBytes caps the raw body kept on errors whose payload is not JSON.
const maxSnippetBytes = 256

// detailKeys are probed in order when extracting a human readable detail
// from an error payload.
var detailKeys = []string{"detail", "message", "error"}

// APIError is a classified failure of one API call.
type APIError struct {
	// StatusCode is the HTTP status, 0 when no response was received.
	StatusCode int
	ErrorClass ErrorClass
	Message    string

	// Response is the decoded JSON error payload, if it was a JSON object.
	Response map[string]any

	// Snippet holds the truncated raw body when Response could not be decoded.
	Snippet string

	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if detail := e.Detail(); detail != "" && detail != msg {
		msg += ": " + detail
	}

	if e.StatusCode > 0 {
		msg = fmt.Sprintf("API %s error (status %d): %s", e.ErrorClass, e.StatusCode, msg)
	} else {
		msg = fmt.Sprintf("API %s error: %s", e.ErrorClass, msg)
	}

	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Detail returns the upstream explanation found under the common
// detail/message/error keys, falling back to the raw snippet.
func (e *APIError) Detail() string {
	for _, key := range detailKeys {
		value, ok := e.Response[key]
		if !ok || value == nil {
			continue
		}
		if s, ok := value.(string); ok {
			if s != "" {
				return s
			}
			continue
		}
		// FastAPI style validation details arrive as lists of objects.
		if encoded, err := json.Marshal(value); err == nil {
			return string(encoded)
		}
	}
	return e.Snippet
}

// StatusCode extracts the HTTP status carried by err, if any.
func StatusCode(err error) (int, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode > 0 {
		return apiErr.StatusCode, true
	}
	return 0, false
}

// classifyStatus maps an HTTP status to its error class.
func classifyStatus(code int) ErrorClass {
	switch {
	case code == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case code >= 400 && code < 500:
		return ErrorClassClient
	case code >= 500:
		return ErrorClassServer
	default:
		return ErrorClassUnknown
	}
}

// newHTTPError builds an APIError from a failed response.
func newHTTPError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		ErrorClass: classifyStatus(statusCode),
		Message:    http.StatusText(statusCode),
	}
	if apiErr.Message == "" {
		apiErr.Message = "unexpected status"
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil && payload != nil {
		apiErr.Response = payload
	} else {
		apiErr.Snippet = truncateSnippet(strings.TrimSpace(string(body)))
	}
	return apiErr
}

// newNetworkError wraps a transport level failure.
func newNetworkError(err error) *APIError {
	return &APIError{
		ErrorClass: ErrorClassNetwork,
		Message:    "request failed",
		Err:        err,
	}
}

// classified returns err unchanged when it already carries an APIError,
// otherwise wraps it into one.
func classified(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}
	if isConnectionError(err) {
		return newNetworkError(err)
	}
	return &APIError{
		ErrorClass: ErrorClassUnknown,
		Message:    "unexpected error",
		Err:        err,
	}
}

// errorClassOf reports the class of err for logs and metrics.
func errorClassOf(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorClass
	}
	if isConnectionError(err) {
		return ErrorClassNetwork
	}
	return ErrorClassUnknown
}

// isConnectionError reports whether err is a connection level failure
// (timeout, refused or reset connection, truncated read). Caller
// cancellation is never a connection failure.
func isConnectionError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.ErrorClass == ErrorClassNetwork {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// truncateSnippet cuts s to maxSnippetBytes without splitting a rune.
func truncateSnippet(s string) string {
	if len(s) <= maxSnippetBytes {
		return s
	}
	cut := maxSnippetBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

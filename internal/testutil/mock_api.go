// Package testutil provides testing utilities for the Explorium API client.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// MockAPIResponse defines the behavior for a mock API endpoint response.
type MockAPIResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is one request received by the mock server.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header

	// Body is the decoded JSON body, nil when the body was empty or not an object.
	Body map[string]any
}

// MockAPI is a configurable mock Explorium API server for testing.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	requests []RecordedRequest
}

// NewMockAPI creates a new mock API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(raw))

		recorded := RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
		}
		if len(raw) > 0 {
			var body map[string]any
			if err := json.Unmarshal(raw, &body); err == nil {
				recorded.Body = body
			}
		}

		mock.mu.Lock()
		mock.requests = append(mock.requests, recorded)
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		WriteJSON(w, http.StatusNotFound, map[string]any{"detail": "Not Found"})
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears recorded requests.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockAPI) SetResponse(path string, resp MockAPIResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// SetJSON configures a fixed JSON response for a path.
func (m *MockAPI) SetJSON(path string, status int, v any) {
	m.SetResponse(path, NewJSONResponse(status, v))
}

// SetSequence configures successive responses for a path. The last
// response repeats once the sequence is used up.
func (m *MockAPI) SetSequence(path string, responses ...MockAPIResponse) {
	var mu sync.Mutex
	next := 0
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[next]
		if next < len(responses)-1 {
			next++
		}
		mu.Unlock()
		writeResponse(w, resp)
	})
}

// Requests returns the recorded requests for path, or all requests when
// path is empty.
func (m *MockAPI) Requests(path string) []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]RecordedRequest, 0, len(m.requests))
	for _, req := range m.requests {
		if path == "" || req.Path == path {
			out = append(out, req)
		}
	}
	return out
}

// GetRequestCount returns the number of requests made to path, or to the
// server when path is empty.
func (m *MockAPI) GetRequestCount(path string) int {
	return len(m.Requests(path))
}

func writeResponse(w http.ResponseWriter, resp MockAPIResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// WriteJSON writes v as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// NewJSONResponse creates a JSON response with the given status.
func NewJSONResponse(status int, v any) MockAPIResponse {
	body, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return MockAPIResponse{
		StatusCode: status,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewServerErrorResponse creates a 503 Service Unavailable response.
func NewServerErrorResponse() MockAPIResponse {
	return NewJSONResponse(http.StatusServiceUnavailable, map[string]any{"detail": "Service temporarily unavailable"})
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockAPIResponse {
	return NewJSONResponse(http.StatusTooManyRequests, map[string]any{"error": "Rate limit exceeded"})
}

// NewValidationErrorResponse creates a 422 Unprocessable Entity response.
func NewValidationErrorResponse(detail string) MockAPIResponse {
	return NewJSONResponse(http.StatusUnprocessableEntity, map[string]any{"detail": detail})
}

// NewBadRequestResponse creates a 400 Bad Request response.
func NewBadRequestResponse(detail string) MockAPIResponse {
	return NewJSONResponse(http.StatusBadRequest, map[string]any{"detail": detail})
}

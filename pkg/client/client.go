// Package client provides the HTTP transport for the Explorium API with
// retry classification, optional response caching and client-side pacing.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/explorium-cli/pkg/cache"
	"github.com/Sternrassler/explorium-cli/pkg/ratelimit"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the production API root.
	DefaultBaseURL = "https://api.explorium.ai/v1"

	// DefaultUserAgent identifies this client.
	DefaultUserAgent = "explorium-cli/0.1.0"

	// DefaultTimeout bounds a single HTTP attempt.
	DefaultTimeout = 30 * time.Second

	apiKeyHeader = "API_KEY"
)

// Response is a decoded JSON object returned by the API.
type Response map[string]any

// Records extracts the result list of a response. It tries primaryKey
// first and falls back to "data" when primaryKey is missing or empty.
// A value that is not a list yields an empty slice. Every list element
// yields one record so rows stay aligned with the inputs they answer: a
// null element becomes an empty record and any other non-object is kept
// under "data".
func (r Response) Records(primaryKey string) []map[string]any {
	value, ok := r[primaryKey]
	if primaryKey == "" || !ok || isEmptyValue(value) {
		value = r["data"]
	}

	switch list := value.(type) {
	case []map[string]any:
		return list
	case []any:
		records := make([]map[string]any, 0, len(list))
		for _, item := range list {
			switch record := item.(type) {
			case map[string]any:
				records = append(records, record)
			case nil:
				records = append(records, map[string]any{})
			default:
				records = append(records, map[string]any{"data": record})
			}
		}
		return records
	default:
		return []map[string]any{}
	}
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case []any:
		return len(t) == 0
	case []map[string]any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	case string:
		return t == ""
	case bool:
		return !t
	default:
		return false
	}
}

// Request describes one API call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any

	// Cacheable marks read-only calls that may be served from the response cache.
	Cacheable bool
}

// Config holds the client configuration.
type Config struct {
	// APIKey is sent in the API_KEY header (REQUIRED)
	APIKey string

	// BaseURL is the API root, e.g. https://api.explorium.ai/v1
	BaseURL string

	UserAgent string

	// Timeout bounds a single HTTP attempt
	Timeout time.Duration

	// Retry is the transport level retry policy
	Retry RetryConfig

	// Cache is optional; nil disables response caching
	Cache *cache.Manager

	// Limiter is optional; nil disables client-side pacing
	Limiter *ratelimit.Limiter

	// RunID prefixes the X-Request-Id header of every request
	RunID string
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:    apiKey,
		BaseURL:   DefaultBaseURL,
		UserAgent: DefaultUserAgent,
		Timeout:   DefaultTimeout,
		Retry:     DefaultRetryConfig(),
	}
}

// Client is the Explorium API transport.
type Client struct {
	httpClient *http.Client
	baseURL    string
	config     Config
	retrier    *Retrier
	requestSeq atomic.Int64
	logger     zerolog.Logger
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}

	logger := log.With().Str("component", "api-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		config:  cfg,
		retrier: NewRetrier("transport", cfg.Retry, logger),
		logger:  logger,
	}, nil
}

// Do performs one API call: it encodes the body, consults the cache for
// cacheable requests, executes the request with retry and decodes the
// JSON response.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	var body []byte
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = encoded
	}

	if req.Cacheable && c.config.Cache != nil {
		key := cache.CacheKey{
			Method: req.Method,
			Path:   req.Path,
			Query:  req.Query,
			Body:   body,
		}
		entry, hit, err := c.config.Cache.GetOrFetch(ctx, key, func(ctx context.Context) ([]byte, int, error) {
			return c.fetch(ctx, req, body)
		})
		if err != nil {
			return nil, err
		}
		if hit {
			c.logger.Debug().
				Str("endpoint", req.Path).
				Dur("age", entry.Age()).
				Msg("Served from cache")
		}
		return decodeResponse(entry.Data, entry.StatusCode)
	}

	data, status, err := c.fetch(ctx, req, body)
	if err != nil {
		return nil, err
	}
	return decodeResponse(data, status)
}

// fetch executes the HTTP request with retry and returns the raw body.
func (c *Client) fetch(ctx context.Context, req Request, body []byte) ([]byte, int, error) {
	endpoint := req.Path

	var data []byte
	var status int

	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		if err := c.config.Limiter.Wait(ctx); err != nil {
			return err
		}

		httpReq, err := c.newRequest(ctx, req, body)
		if err != nil {
			return err
		}

		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("method", req.Method).
			Str("request_id", httpReq.Header.Get("X-Request-Id")).
			Msg("Executing API request")

		startTime := time.Now()
		resp, err := c.httpClient.Do(httpReq)
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
		if err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			c.logger.Debug().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
			return newNetworkError(err)
		}
		defer resp.Body.Close()

		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return newNetworkError(fmt.Errorf("read response body: %w", err))
		}

		requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode >= 400 {
			apiErr := newHTTPError(resp.StatusCode, payload)
			errorsTotal.WithLabelValues(string(apiErr.ErrorClass)).Inc()
			c.logger.Debug().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(apiErr.ErrorClass)).
				Msg("API request error")
			return apiErr
		}

		data, status = payload, resp.StatusCode
		return nil
	})

	return data, status, err
}

func (c *Client) newRequest(ctx context.Context, req Request, body []byte) (*http.Request, error) {
	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set(apiKeyHeader, c.config.APIKey)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	httpReq.Header.Set("X-Request-Id", fmt.Sprintf("%s-%d", c.config.RunID, c.requestSeq.Add(1)))
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	return httpReq, nil
}

// decodeResponse parses a response body. An empty body is an empty
// object and a top-level array is wrapped under "data".
func decodeResponse(data []byte, status int) (Response, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Response{}, nil
	}

	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return nil, &APIError{
			StatusCode: status,
			ErrorClass: ErrorClassDecode,
			Message:    "invalid JSON response",
			Snippet:    truncateSnippet(string(trimmed)),
			Err:        err,
		}
	}

	if object, ok := decoded.(map[string]any); ok {
		return Response(object), nil
	}
	return Response{"data": decoded}, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (Response, error) {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// SetRetrier replaces the transport retrier (for testing).
func (c *Client) SetRetrier(r *Retrier) {
	c.retrier = r
}

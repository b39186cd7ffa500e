package client

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code     int
		expected ErrorClass
	}{
		{code: 400, expected: ErrorClassClient},
		{code: 401, expected: ErrorClassClient},
		{code: 404, expected: ErrorClassClient},
		{code: 422, expected: ErrorClassClient},
		{code: 429, expected: ErrorClassRateLimit},
		{code: 500, expected: ErrorClassServer},
		{code: 503, expected: ErrorClassServer},
		{code: 200, expected: ErrorClassUnknown},
		{code: 0, expected: ErrorClassUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.code), func(t *testing.T) {
			if got := classifyStatus(tt.code); got != tt.expected {
				t.Errorf("classifyStatus(%d) = %q, want %q", tt.code, got, tt.expected)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		expected string
	}{
		{
			name: "status with detail",
			apiError: &APIError{
				StatusCode: 404,
				ErrorClass: ErrorClassClient,
				Message:    "Not Found",
				Response:   map[string]any{"detail": "business not found"},
			},
			expected: "API client error (status 404): Not Found: business not found",
		},
		{
			name: "status without detail",
			apiError: &APIError{
				StatusCode: 503,
				ErrorClass: ErrorClassServer,
				Message:    "Service Unavailable",
			},
			expected: "API server error (status 503): Service Unavailable",
		},
		{
			name: "network error wraps cause",
			apiError: &APIError{
				ErrorClass: ErrorClassNetwork,
				Message:    "request failed",
				Err:        errors.New("connection refused"),
			},
			expected: "API network error: request failed: connection refused",
		},
		{
			name: "detail equal to message is not repeated",
			apiError: &APIError{
				StatusCode: 400,
				ErrorClass: ErrorClassClient,
				Message:    "Bad Request",
				Response:   map[string]any{"message": "Bad Request"},
			},
			expected: "API client error (status 400): Bad Request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.apiError.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	cause := errors.New("underlying")
	apiErr := &APIError{ErrorClass: ErrorClassNetwork, Err: cause}

	if !errors.Is(apiErr, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if (&APIError{}).Unwrap() != nil {
		t.Error("Unwrap() without cause should be nil")
	}
}

func TestAPIError_Detail(t *testing.T) {
	tests := []struct {
		name     string
		response map[string]any
		snippet  string
		expected string
	}{
		{name: "detail key", response: map[string]any{"detail": "bad filter"}, expected: "bad filter"},
		{name: "message key", response: map[string]any{"message": "quota exceeded"}, expected: "quota exceeded"},
		{name: "error key", response: map[string]any{"error": "invalid key"}, expected: "invalid key"},
		{name: "detail wins over message", response: map[string]any{"detail": "first", "message": "second"}, expected: "first"},
		{name: "empty detail falls through", response: map[string]any{"detail": "", "error": "fallback"}, expected: "fallback"},
		{
			name:     "structured detail is JSON encoded",
			response: map[string]any{"detail": []any{map[string]any{"loc": "body", "msg": "field required"}}},
			expected: `[{"loc":"body","msg":"field required"}]`,
		},
		{name: "snippet fallback", snippet: "<html>gateway</html>", expected: "<html>gateway</html>"},
		{name: "nothing", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := &APIError{Response: tt.response, Snippet: tt.snippet}
			if got := apiErr.Detail(); got != tt.expected {
				t.Errorf("Detail() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNewHTTPError(t *testing.T) {
	t.Run("json payload", func(t *testing.T) {
		apiErr := newHTTPError(422, []byte(`{"detail":"page_size too large"}`))

		if apiErr.StatusCode != 422 {
			t.Errorf("StatusCode = %d, want 422", apiErr.StatusCode)
		}
		if apiErr.ErrorClass != ErrorClassClient {
			t.Errorf("ErrorClass = %q, want %q", apiErr.ErrorClass, ErrorClassClient)
		}
		if apiErr.Response["detail"] != "page_size too large" {
			t.Errorf("Response = %v, want detail payload", apiErr.Response)
		}
		if apiErr.Snippet != "" {
			t.Errorf("Snippet = %q, want empty", apiErr.Snippet)
		}
	})

	t.Run("non json payload is truncated", func(t *testing.T) {
		body := strings.Repeat("x", 1000)
		apiErr := newHTTPError(502, []byte(body))

		if apiErr.Response != nil {
			t.Errorf("Response = %v, want nil", apiErr.Response)
		}
		if !strings.HasSuffix(apiErr.Snippet, "...") {
			t.Errorf("Snippet should end with ellipsis, got %q", apiErr.Snippet[len(apiErr.Snippet)-10:])
		}
		if len(apiErr.Snippet) != maxSnippetBytes+3 {
			t.Errorf("len(Snippet) = %d, want %d", len(apiErr.Snippet), maxSnippetBytes+3)
		}
	})
}

func TestTruncateSnippet_RuneSafe(t *testing.T) {
	// 255 ASCII bytes followed by a 3-byte rune straddling the limit.
	s := strings.Repeat("a", maxSnippetBytes-1) + "€" + "tail"
	got := truncateSnippet(s)

	if got != strings.Repeat("a", maxSnippetBytes-1)+"..." {
		t.Errorf("truncateSnippet() split a rune: %q", got[len(got)-8:])
	}
	if short := truncateSnippet("short"); short != "short" {
		t.Errorf("truncateSnippet(short) = %q, want %q", short, "short")
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantOK   bool
	}{
		{name: "api error", err: newHTTPError(404, nil), wantCode: 404, wantOK: true},
		{name: "wrapped api error", err: fmt.Errorf("batch 1: %w", newHTTPError(429, nil)), wantCode: 429, wantOK: true},
		{name: "network error", err: newNetworkError(errors.New("reset")), wantCode: 0, wantOK: false},
		{name: "plain error", err: errors.New("plain"), wantCode: 0, wantOK: false},
		{name: "nil", err: nil, wantCode: 0, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := StatusCode(tt.err)
			if code != tt.wantCode || ok != tt.wantOK {
				t.Errorf("StatusCode() = %d, %v, want %d, %v", code, ok, tt.wantCode, tt.wantOK)
			}
		})
	}
}

func TestClassified(t *testing.T) {
	apiErr := newHTTPError(400, nil)
	if got := classified(apiErr); got != error(apiErr) {
		t.Errorf("classified() should keep an existing APIError unchanged")
	}

	var out *APIError
	if !errors.As(classified(errors.New("boom")), &out) || out.ErrorClass != ErrorClassUnknown {
		t.Errorf("classified(plain) should yield an unknown APIError, got %v", out)
	}
}

package client

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/ukcensus-tools/census-client/internal/testutil"
	"github.com/ukcensus-tools/census-client/pkg/ratelimit"
)

func testLimiter(t *testing.T) *ratelimit.Limiter {
	t.Helper()

	limiter, err := ratelimit.New([]ratelimit.Window{
		{Capacity: 1000, Duration: time.Minute},
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("ratelimit.New() failed: %v", err)
	}
	return limiter
}

func TestNew_Validation(t *testing.T) {
	limiter := testLimiter(t)

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "missing base URL",
			config:  Config{Limiter: limiter},
			wantErr: true,
		},
		{
			name:    "missing limiter",
			config:  Config{BaseURL: "https://api.example.com/v1"},
			wantErr: true,
		},
		{
			name:    "valid default config",
			config:  DefaultConfig("https://api.example.com/v1", limiter),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetJSON_Success(t *testing.T) {
	mock := testutil.NewMockCensus()
	defer mock.Close()

	mock.SetRawJSON("/population-types", `{"total_count": 1, "items": [{"name": "UR"}]}`)

	c, err := New(DefaultConfig(mock.URL(), testLimiter(t)))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	payload, err := c.GetJSON(context.Background(), "population-types", nil)
	if err != nil {
		t.Fatalf("GetJSON() failed: %v", err)
	}

	if payload["total_count"] != float64(1) {
		t.Errorf("total_count = %v, want 1", payload["total_count"])
	}
}

func TestGetJSON_BadRequestIsBenign(t *testing.T) {
	mock := testutil.NewMockCensus()
	defer mock.Close()

	mock.SetStatus("/population-types/UR/census-observations", 400)

	c, err := New(DefaultConfig(mock.URL(), testLimiter(t)))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	payload, err := c.GetJSON(context.Background(), "population-types/UR/census-observations", nil)
	if err != nil {
		t.Fatalf("GetJSON() on 400 should not fail, got: %v", err)
	}
	if payload != nil {
		t.Errorf("GetJSON() on 400 = %v, want nil payload", payload)
	}
}

func TestGetJSON_FatalStatuses(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "not found", status: 404},
		{name: "server error", status: 500},
		{name: "bad gateway", status: 502},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockCensus()
			defer mock.Close()

			mock.SetStatus("/population-types", tt.status)

			c, err := New(DefaultConfig(mock.URL(), testLimiter(t)))
			if err != nil {
				t.Fatalf("New() failed: %v", err)
			}

			_, err = c.GetJSON(context.Background(), "population-types", nil)
			if err == nil {
				t.Fatalf("GetJSON() on %d should fail", tt.status)
			}

			var httpErr *HTTPError
			if !errors.As(err, &httpErr) {
				t.Fatalf("error = %v, want *HTTPError", err)
			}
			if httpErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", httpErr.StatusCode, tt.status)
			}
		})
	}
}

func TestRequestURL(t *testing.T) {
	c, err := New(DefaultConfig("https://api.example.com/v1/", testLimiter(t)))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	tests := []struct {
		name     string
		endpoint string
		params   url.Values
		expected string
	}{
		{
			name:     "no params",
			endpoint: "population-types",
			expected: "https://api.example.com/v1/population-types",
		},
		{
			name:     "leading slash trimmed",
			endpoint: "/population-types",
			expected: "https://api.example.com/v1/population-types",
		},
		{
			name:     "with params",
			endpoint: "population-types/UR/dimensions",
			params:   url.Values{"q": []string{"religion"}},
			expected: "https://api.example.com/v1/population-types/UR/dimensions?q=religion",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.requestURL(tt.endpoint, tt.params); got != tt.expected {
				t.Errorf("requestURL() = %q, want %q", got, tt.expected)
			}
		})
	}
}

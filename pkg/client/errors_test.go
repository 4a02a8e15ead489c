package client

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestHTTPError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *HTTPError
		contains []string
	}{
		{
			name:     "status and endpoint",
			err:      &HTTPError{Endpoint: "population-types", StatusCode: 500},
			contains: []string{"population-types", "500"},
		},
		{
			name:     "wrapped error included",
			err:      &HTTPError{Endpoint: "area-types", StatusCode: 503, Err: errors.New("upstream down")},
			contains: []string{"area-types", "503", "upstream down"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(msg, want) {
					t.Errorf("Error() = %q, missing %q", msg, want)
				}
			}
		})
	}
}

func TestHTTPError_Unwrap(t *testing.T) {
	inner := errors.New("connection reset")
	err := &HTTPError{Endpoint: "population-types", StatusCode: 500, Err: inner}

	wrapped := fmt.Errorf("fetch failed: %w", err)

	var httpErr *HTTPError
	if !errors.As(wrapped, &httpErr) {
		t.Fatal("errors.As should find *HTTPError through wrapping")
	}
	if !errors.Is(wrapped, inner) {
		t.Error("errors.Is should find the inner error through Unwrap")
	}
}

func TestMalformedResponseError_Error(t *testing.T) {
	err := &MalformedResponseError{Endpoint: "population-types", Field: "total_count"}

	msg := err.Error()
	if !strings.Contains(msg, "population-types") || !strings.Contains(msg, "total_count") {
		t.Errorf("Error() = %q, want endpoint and field named", msg)
	}
}

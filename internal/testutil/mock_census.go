// Package testutil provides testing utilities for the census client.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
)

// MockCensus is a configurable mock census API server for testing.
type MockCensus struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Tracking
	RequestCount int
	PathCounts   map[string]int
}

// NewMockCensus creates a new mock census API server.
func NewMockCensus() *MockCensus {
	mock := &MockCensus{
		handlers:   make(map[string]http.HandlerFunc),
		PathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.PathCounts[r.URL.Path]++
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		// Unknown paths answer 404 so orchestration bugs surface as fatal
		// transport errors instead of silent empties.
		w.WriteHeader(http.StatusNotFound)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockCensus) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCensus) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockCensus) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.PathCounts = make(map[string]int)
}

// Requests returns the total number of requests received.
func (m *MockCensus) Requests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// SetHandler registers a custom handler for a path.
func (m *MockCensus) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetStatus makes a path answer a fixed status code with an empty body.
func (m *MockCensus) SetStatus(path string, statusCode int) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(statusCode)
	})
}

// SetPaginated serves a full item set under limit/offset pagination with a
// total_count field, the standard shape of census list endpoints.
func (m *MockCensus) SetPaginated(path string, items []map[string]any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil || limit <= 0 {
			limit = 100
		}
		offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
		if err != nil || offset < 0 {
			offset = 0
		}

		page := []map[string]any{}
		if offset < len(items) {
			end := offset + limit
			if end > len(items) {
				end = len(items)
			}
			page = items[offset:end]
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"total_count": len(items),
			"items":       page,
		})
	})
}

// SetObservations serves an unpaginated observations payload, the shape of
// the census-observations endpoint.
func (m *MockCensus) SetObservations(path string, observations []map[string]any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"observations": observations,
		})
	})
}

// SetRawJSON serves a fixed JSON body.
func (m *MockCensus) SetRawJSON(path string, body string) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	})
}

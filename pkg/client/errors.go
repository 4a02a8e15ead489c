package client

import (
	"fmt"
)

// HTTPError represents a fatal, non-200/non-400 response from the census API.
// It aborts the current fetch and propagates outward unchanged.
type HTTPError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("census request %q failed with status %d: %v",
			e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("census request %q failed with status %d",
		e.Endpoint, e.StatusCode)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// MalformedResponseError reports an expected field missing from a JSON
// payload, so lookup failures surface as a named condition instead of a
// generic map access error.
type MalformedResponseError struct {
	Endpoint string
	Field    string
}

// Error implements the error interface.
func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("census response for %q is missing field %q", e.Endpoint, e.Field)
}

package storage

import (
	"errors"
	"fmt"
	"net/http"
)

// Common storage errors.
var (
	// ErrNotFound is returned when a table or configuration is not found.
	ErrNotFound = errors.New("entity not found")
)

// APIError is returned when the Storage API answers with a non-2xx status.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storage API %s %s failed (status %d): %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Is reports ErrNotFound for 404 responses so callers can use errors.Is.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

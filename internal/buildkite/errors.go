package buildkite

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is returned for any non-2xx response from the API.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("buildkite %s: HTTP %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("buildkite %s: HTTP %d: %s", e.Operation, e.StatusCode, e.Body)
}

// StatusCode returns the upstream status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

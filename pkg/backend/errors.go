package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrFetchCancelled is returned for a fetch superseded by a newer one or
// abandoned by Close.
var ErrFetchCancelled = errors.New("fetch cancelled")

// UpstreamError is a non-2xx response from the prediction service.
type UpstreamError struct {
	Op     string
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: upstream returned %d %s", e.Op, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("%s: upstream returned %d: %s", e.Op, e.Status, e.Body)
}

// NotFound reports whether the service had no such resource.
func (e *UpstreamError) NotFound() bool { return e.Status == http.StatusNotFound }

// Unauthorized reports whether the token was missing, expired or lacked rights.
func (e *UpstreamError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

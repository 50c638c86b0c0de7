package ai

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured is returned when a provider is asked to send a request
// without credentials. Callers must not retry it.
var ErrNotConfigured = errors.New("ai backend is not configured")

// BackendError is the unified error returned by provider implementations
// for upstream HTTP failures, carrying enough to classify without string
// matching at call sites.
type BackendError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "request failed"
	}
	return fmt.Sprintf("%s error (status=%d): %s", e.Provider, e.StatusCode, msg)
}

// NewBackendError builds a BackendError from an upstream HTTP status.
func NewBackendError(provider string, statusCode int, message string) *BackendError {
	return &BackendError{Provider: provider, StatusCode: statusCode, Message: message}
}

// IsAuthError reports whether err represents invalid or rejected
// credentials. These are fatal for the run; no retry helps.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrNotConfigured) {
		return true
	}
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return backendErr.StatusCode == 401 || backendErr.StatusCode == 403
	}
	return false
}

// IsThrottled reports whether err is an upstream rate-limit/quota
// rejection, surfaced to the caller for backoff rather than retried
// internally.
func IsThrottled(err error) bool {
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return backendErr.StatusCode == 429
	}
	return false
}

// IsInvalidRequest reports whether the backend rejected the request body
// itself. The engine uses this to decide the one multimodal-to-text
// fallback retry.
func IsInvalidRequest(err error) bool {
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return backendErr.StatusCode == 400 || backendErr.StatusCode == 422
	}
	return false
}

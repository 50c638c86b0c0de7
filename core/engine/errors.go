package engine

import (
	"errors"
	"fmt"
)

// Kind classifies a run failure for transport mapping. The HTTP layer
// turns each kind into a status code without inspecting error strings.
type Kind string

const (
	// KindInvalidGraph marks a structurally unusable run request.
	KindInvalidGraph Kind = "invalid_graph"

	// KindQuotaExceeded marks a run blocked by the monthly quota.
	KindQuotaExceeded Kind = "quota_exceeded"

	// KindAuthConfig marks missing or rejected backend credentials.
	KindAuthConfig Kind = "auth_config"

	// KindUpstreamThrottled marks an upstream rate-limit rejection.
	KindUpstreamThrottled Kind = "upstream_throttled"

	// KindUpstreamFailure marks any other upstream or internal failure.
	KindUpstreamFailure Kind = "upstream_failure"
)

// Error is the engine's run failure type. It wraps the underlying cause
// so callers can still reach provider errors through errors.As.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the failure kind from any error returned by Run.
// Unclassified errors report KindUpstreamFailure.
func KindOf(err error) Kind {
	var engineErr *Error
	if errors.As(err, &engineErr) {
		return engineErr.Kind
	}
	return KindUpstreamFailure
}

package ai

import (
	"context"
	"net/http"
)

// Provider is the interface every AI backend implementation must satisfy.
// It covers authentication, endpoint configuration and message dispatch for
// a single synchronous completion request.
type Provider interface {
	// SendMessage sends a chat request to the backend and returns the
	// completed response. Returns an error if the call fails, the context
	// is cancelled, or the response cannot be decoded.
	SendMessage(ctx context.Context, request ChatRequest) (*ChatResponse, error)

	// Configured reports whether the provider has credentials and could
	// plausibly serve a request. Used by the health endpoint.
	Configured() bool

	// WithAPIKey sets the API key used for authenticating requests.
	WithAPIKey(apiKey string) Provider

	// WithBaseURL overrides the default base URL for API requests.
	WithBaseURL(baseURL string) Provider

	// WithHttpClient sets the HTTP client used for outbound requests.
	WithHttpClient(httpClient *http.Client) Provider
}

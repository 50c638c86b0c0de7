package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// HeaderOption is an extra header to set on an outbound request, for
// backends that authenticate with a custom header instead of a Bearer token.
type HeaderOption struct {
	Key   string
	Value string
}

// DoPostSync performs a synchronous HTTP POST with a JSON body and decodes
// the response into OutputStruct.
//
// Error handling strategy:
//   - Context errors (timeout, cancellation) are propagated immediately
//   - HTTP errors (connection failures, non-2xx status) return the error
//     alongside the *http.Response so callers can classify by status code
//   - Response body close errors are logged but don't override the primary error
//   - JSON decoding errors include a response preview for debugging
func DoPostSync[OutputStruct any](ctx context.Context, client *http.Client, url string, apiKey string, body any, headers ...HeaderOption) (*http.Response, *OutputStruct, error) {
	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("error marshaling body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	for _, h := range headers {
		req.Header.Set(h.Key, h.Value)
	}

	res, err := httpClient.Do(req)
	if err != nil {
		return res, nil, fmt.Errorf("error sending request: %w", err)
	}
	defer func(responseBody io.ReadCloser) {
		if closeErr := responseBody.Close(); closeErr != nil {
			slog.Warn("failed to close response body", "error", closeErr.Error(), "url", url)
		}
	}(res.Body)

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return res, nil, fmt.Errorf("error reading response body: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return res, nil, fmt.Errorf("non-2xx status %d: %s", res.StatusCode, TruncateString(string(respBody), DefaultMaxStringLength))
	}

	var resStruct OutputStruct
	if err = json.Unmarshal(respBody, &resStruct); err != nil {
		return res, nil, fmt.Errorf("error unmarshaling response body (status %d): %w\nResponse preview: %s", res.StatusCode, err, TruncateString(string(respBody), DefaultMaxStringLength))
	}

	return res, &resStruct, nil
}

package gemini

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/pthurston/nodeflow/internal/utils"
	"github.com/pthurston/nodeflow/providers/ai"
	"github.com/pthurston/nodeflow/providers/observability"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.0-flash"
)

// GeminiProvider implements the ai.Provider interface for Google's Gemini API.
type GeminiProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates a new Gemini provider with defaults from the environment.
// Environment variables:
//   - GEMINI_API_KEY: API key for authentication
//   - GEMINI_API_BASE_URL: Base URL for API (optional, defaults to Google's API)
func New() *GeminiProvider {
	baseURL := os.Getenv("GEMINI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &GeminiProvider{
		apiKey:  os.Getenv("GEMINI_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// WithAPIKey sets the API key for the provider.
func (p *GeminiProvider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the base URL for the API.
func (p *GeminiProvider) WithBaseURL(baseURL string) ai.Provider {
	p.baseURL = baseURL
	return p
}

// WithHttpClient sets a custom HTTP client.
func (p *GeminiProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	p.client = httpClient
	return p
}

// Configured reports whether an API key is present.
func (p *GeminiProvider) Configured() bool {
	return p.apiKey != ""
}

// SendMessage implements the ai.Provider interface. It sends a chat request
// to the Gemini API and returns the response. Upstream HTTP failures come
// back as *ai.BackendError so callers can classify by status code; a
// missing API key returns ai.ErrNotConfigured without touching the network.
func (p *GeminiProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	observer := observability.FromContext(ctx)

	model := request.Model
	if model == "" {
		model = defaultModel
	}

	if !p.Configured() {
		return nil, ai.ErrNotConfigured
	}

	observer.Debug(ctx, "gemini request prepared",
		observability.String(observability.AttrLLMProvider, "gemini"),
		observability.String(observability.AttrLLMEndpoint, p.baseURL),
		observability.String(observability.AttrLLMModel, model),
	)

	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, model)
	geminiReq := requestToGemini(request)

	// Gemini authenticates with its own header, not a Bearer token.
	httpResponse, resp, err := utils.DoPostSync[generateContentResponse](
		ctx,
		p.client,
		url,
		"",
		geminiReq,
		utils.HeaderOption{Key: "x-goog-api-key", Value: p.apiKey},
	)
	if err != nil {
		if httpResponse != nil && (httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300) {
			return nil, ai.NewBackendError("gemini", httpResponse.StatusCode, err.Error())
		}
		observer.Debug(ctx, "gemini request failed", observability.Error(err))
		return nil, err
	}

	if resp == nil {
		return nil, fmt.Errorf("empty response from Gemini API: %s", httpResponse.Status)
	}

	result := geminiToGeneric(*resp)
	result.Model = model // Ensure model is set even if not in response

	observer.Debug(ctx, "gemini response received",
		observability.String(observability.AttrLLMFinishReason, result.FinishReason),
		observability.Int(observability.AttrHTTPStatusCode, httpResponse.StatusCode),
	)

	return result, nil
}

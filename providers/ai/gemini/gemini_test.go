package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pthurston/nodeflow/providers/ai"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*GeminiProvider, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider := &GeminiProvider{
		apiKey:  "test-key",
		baseURL: server.URL,
		client:  server.Client(),
	}
	return provider, server
}

func TestSendMessage_Success(t *testing.T) {
	var captured generateContentRequest
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		_ = json.NewEncoder(w).Encode(generateContentResponse{
			Candidates: []candidate{{
				Content:      &content{Role: "model", Parts: []part{{Text: "hello "}, {Text: "world"}}},
				FinishReason: "STOP",
			}},
			UsageMetadata: &usageMetadata{PromptTokenCount: 10, CandidatesTokenCount: 5, TotalTokenCount: 15},
			ModelVersion:  "gemini-2.0-flash",
		})
	})

	resp, err := provider.SendMessage(context.Background(), ai.ChatRequest{
		SystemPrompt: "be terse",
		Messages:     []ai.Message{{Role: ai.RoleUser, Content: "hi"}},
		GenerationConfig: &ai.GenerationConfig{
			Temperature:     0.3,
			MaxOutputTokens: 4096,
		},
	})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	if resp.Content != "hello world" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("finish reason = %q", resp.FinishReason)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 15 {
		t.Errorf("usage = %+v", resp.Usage)
	}

	if captured.SystemInstruction == nil || captured.SystemInstruction.Parts[0].Text != "be terse" {
		t.Errorf("system instruction not forwarded: %+v", captured.SystemInstruction)
	}
	if captured.GenerationConfig == nil || captured.GenerationConfig.MaxOutputTokens == nil || *captured.GenerationConfig.MaxOutputTokens != 4096 {
		t.Errorf("generation config not forwarded: %+v", captured.GenerationConfig)
	}
}

func TestSendMessage_VideoBecomesFileDataPart(t *testing.T) {
	var captured generateContentRequest
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		_ = json.NewEncoder(w).Encode(generateContentResponse{
			Candidates: []candidate{{Content: &content{Parts: []part{{Text: "ok"}}}, FinishReason: "STOP"}},
		})
	})

	_, err := provider.SendMessage(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{{
			Role: ai.RoleUser,
			ContentParts: []ai.ContentPart{
				{Type: ai.ContentTypeText, Text: "watch this"},
				{Type: ai.ContentTypeVideo, Video: &ai.MediaData{MimeType: "video/mp4", URI: "https://youtu.be/abc123"}},
			},
		}},
	})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	parts := captured.Contents[0].Parts
	if len(parts) != 2 {
		t.Fatalf("parts = %+v, want text + fileData", parts)
	}
	if parts[0].Text != "watch this" {
		t.Errorf("text part = %+v", parts[0])
	}
	if parts[1].FileData == nil || parts[1].FileData.FileURI != "https://youtu.be/abc123" {
		t.Errorf("fileData part = %+v", parts[1])
	}
}

func TestSendMessage_MissingKeyIsNotConfigured(t *testing.T) {
	provider := &GeminiProvider{baseURL: "http://unused", client: http.DefaultClient}
	_, err := provider.SendMessage(context.Background(), ai.ChatRequest{})
	if !ai.IsAuthError(err) {
		t.Fatalf("error = %v, want auth/config error", err)
	}
	if provider.Configured() {
		t.Error("Configured() = true without key")
	}
}

func TestSendMessage_UpstreamStatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"rate limit", http.StatusTooManyRequests, ai.IsThrottled},
		{"bad key", http.StatusUnauthorized, ai.IsAuthError},
		{"bad request", http.StatusBadRequest, ai.IsInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "upstream says no", tt.status)
			})

			_, err := provider.SendMessage(context.Background(), ai.ChatRequest{
				Messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}},
			})
			if err == nil {
				t.Fatal("expected error")
			}
			if !tt.check(err) {
				t.Errorf("error %v not classified as %s", err, tt.name)
			}
		})
	}
}

func TestSendMessage_BlockedPromptIsContentFilter(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(generateContentResponse{
			PromptFeedback: &promptFeedback{BlockReason: "SAFETY"},
		})
	})

	resp, err := provider.SendMessage(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if resp.FinishReason != "content_filter" {
		t.Errorf("finish reason = %q, want content_filter", resp.FinishReason)
	}
}

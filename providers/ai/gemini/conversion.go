package gemini

import (
	"fmt"
	"strings"
	"time"

	"github.com/pthurston/nodeflow/providers/ai"
)

// requestToGemini converts an ai.ChatRequest to a Gemini generateContentRequest.
func requestToGemini(request ai.ChatRequest) generateContentRequest {
	req := generateContentRequest{}

	if request.SystemPrompt != "" {
		req.SystemInstruction = &systemInstruction{
			Parts: []part{{Text: request.SystemPrompt}},
		}
	}

	req.Contents = buildContents(request.Messages)
	req.GenerationConfig = buildGenerationConfig(request.GenerationConfig)

	return req
}

// buildContents converts ai.Message slices to Gemini content slices.
// Role mapping: user -> user, assistant -> model, system -> user (system
// prompts belong in SystemInstruction, but a stray system message must not
// be dropped).
func buildContents(messages []ai.Message) []content {
	var contents []content

	for _, msg := range messages {
		role := "user"
		if msg.Role == ai.RoleAssistant {
			role = "model"
		}

		c := content{Role: role}
		if len(msg.ContentParts) > 0 {
			c.Parts = contentPartsToGeminiParts(msg.ContentParts)
		} else {
			c.Parts = []part{{Text: msg.Content}}
		}
		contents = append(contents, c)
	}

	return contents
}

// contentPartsToGeminiParts converts generic ContentPart slices to Gemini
// part slices. Video content arrives as a URI reference and becomes a
// fileData part.
func contentPartsToGeminiParts(contentParts []ai.ContentPart) []part {
	var parts []part
	for _, contentPart := range contentParts {
		switch contentPart.Type {
		case ai.ContentTypeText:
			parts = append(parts, part{Text: contentPart.Text})

		case ai.ContentTypeVideo:
			if contentPart.Video != nil && contentPart.Video.URI != "" {
				parts = append(parts, part{
					FileData: &fileData{
						MimeType: contentPart.Video.MimeType,
						FileURI:  contentPart.Video.URI,
					},
				})
			}
		}
	}
	return parts
}

// buildGenerationConfig converts ai.GenerationConfig to Gemini generationConfig.
func buildGenerationConfig(cfg *ai.GenerationConfig) *generationConfig {
	if cfg == nil {
		return nil
	}

	gc := &generationConfig{}
	if cfg.Temperature > 0 {
		t := float64(cfg.Temperature)
		gc.Temperature = &t
	}
	if cfg.TopP > 0 {
		p := float64(cfg.TopP)
		gc.TopP = &p
	}
	if cfg.MaxOutputTokens > 0 {
		gc.MaxOutputTokens = &cfg.MaxOutputTokens
	}
	return gc
}

// geminiToGeneric converts a Gemini generateContentResponse to ai.ChatResponse.
func geminiToGeneric(resp generateContentResponse) *ai.ChatResponse {
	result := &ai.ChatResponse{
		Id:    resp.ResponseID,
		Model: resp.ModelVersion,
	}
	if result.Id == "" {
		result.Id = fmt.Sprintf("gemini-%d", time.Now().UnixNano())
	}

	if len(resp.Candidates) == 0 {
		result.FinishReason = "error"
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			result.FinishReason = "content_filter"
		}
		return result
	}

	first := resp.Candidates[0]
	result.FinishReason = mapFinishReason(first.FinishReason)

	if first.Content != nil {
		var textParts []string
		for _, p := range first.Content.Parts {
			if p.Text != "" {
				textParts = append(textParts, p.Text)
			}
		}
		result.Content = strings.Join(textParts, "")
	}

	if resp.UsageMetadata != nil {
		result.Usage = &ai.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		}
	}

	return result
}

// mapFinishReason translates Gemini finish reasons to the generic vocabulary.
func mapFinishReason(reason string) string {
	switch strings.ToUpper(reason) {
	case "STOP":
		return "stop"
	case "MAX_TOKENS":
		return "length"
	case "SAFETY", "PROHIBITED_CONTENT", "BLOCKLIST":
		return "content_filter"
	case "":
		return ""
	default:
		return strings.ToLower(reason)
	}
}

package ai

/*
	##### PROVIDER INPUT #####
*/

// ChatRequest represents a request for a single completion.
type ChatRequest struct {
	Model            string            `json:"model,omitempty"`             // Model name or identifier
	Messages         []Message         `json:"messages"`                    // Conversation messages, system prompt excluded
	SystemPrompt     string            `json:"system_prompt,omitempty"`     // Optional system prompt
	GenerationConfig *GenerationConfig `json:"generation_config,omitempty"` // Optional generation configuration
}

// Message represents a single message in a conversation. Content holds
// plain text; ContentParts carries multimodal content and takes precedence
// when non-empty.
type Message struct {
	Role         MessageRole   `json:"role"`
	Content      string        `json:"content,omitempty"`
	ContentParts []ContentPart `json:"content_parts,omitempty"`
}

// ContentPart is one piece of a multimodal message.
type ContentPart struct {
	Type  ContentType `json:"type"`
	Text  string      `json:"text,omitempty"`
	Video *MediaData  `json:"video,omitempty"`
}

// MediaData references media by URI. Backends that support URI-addressed
// media (e.g. Gemini fileData parts) send it as-is; others reject it and
// the caller falls back to text.
type MediaData struct {
	MimeType string `json:"mime_type,omitempty"`
	URI      string `json:"uri"`
}

// GenerationConfig tunes sampling and output budget per request.
type GenerationConfig struct {
	Temperature     float32 `json:"temperature,omitempty"`       // Sampling temperature [0..2]. Higher => more random.
	TopP            float32 `json:"top_p,omitempty"`             // Nucleus sampling [0..1].
	MaxOutputTokens int     `json:"max_output_tokens,omitempty"` // Output token budget.
}

/*
	##### PROVIDER OUTPUT #####
*/

// Usage reports token consumption for a completed request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// ChatResponse represents a completed chat response.
type ChatResponse struct {
	Id           string `json:"id"`
	Model        string `json:"model"`
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        *Usage `json:"usage,omitempty"`
}

/*
	##### ENUMS #####
*/

// MessageRole represents the role of a message; compatible with string.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ContentType identifies the payload of a ContentPart.
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeVideo ContentType = "video"
)

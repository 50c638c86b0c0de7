package gemini

/*
	GEMINI API - REQUEST TYPES
*/

// generateContentRequest represents the request to Gemini's generateContent endpoint.
type generateContentRequest struct {
	Contents          []content          `json:"contents"`
	SystemInstruction *systemInstruction `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig  `json:"generationConfig,omitempty"`
}

// systemInstruction represents the system instruction for Gemini.
type systemInstruction struct {
	Parts []part `json:"parts"`
}

// content represents a content block with role and parts.
type content struct {
	Role  string `json:"role,omitempty"` // "user" or "model"
	Parts []part `json:"parts"`
}

// part represents a content part: plain text or a URI-referenced file.
type part struct {
	Text     string    `json:"text,omitempty"`
	FileData *fileData `json:"fileData,omitempty"`
}

// fileData represents a file reference by MIME type and URI. Used for
// URI-based multimodal content such as public video URLs.
type fileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri"`
}

// generationConfig represents generation parameters for Gemini.
type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

/*
	GEMINI API - RESPONSE TYPES
*/

// generateContentResponse represents the response from Gemini's generateContent endpoint.
type generateContentResponse struct {
	Candidates     []candidate     `json:"candidates,omitempty"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *usageMetadata  `json:"usageMetadata,omitempty"`
	ModelVersion   string          `json:"modelVersion,omitempty"`
	ResponseID     string          `json:"responseId,omitempty"`
}

// candidate represents a response candidate.
type candidate struct {
	Content      *content `json:"content,omitempty"`
	FinishReason string   `json:"finishReason,omitempty"`
	Index        int      `json:"index,omitempty"`
}

// promptFeedback represents feedback about the prompt, populated when the
// prompt itself was blocked.
type promptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

// usageMetadata represents token usage information.
type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount,omitempty"`
	CandidatesTokenCount int `json:"candidatesTokenCount,omitempty"`
	TotalTokenCount      int `json:"totalTokenCount,omitempty"`
}

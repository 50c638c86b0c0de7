package engine

import (
	"context"

	"github.com/pthurston/nodeflow/core/prompt"
	"github.com/pthurston/nodeflow/providers/ai"
	"github.com/pthurston/nodeflow/providers/observability"
)

// invoke sends the synthesized payload to the AI backend.
//
// A payload carrying a video reference gets exactly one fallback: if the
// backend rejects the multimodal request body, the same payload is
// resent text-only. Auth and throttle errors are never retried; they
// would fail the same way again.
func (e *Engine) invoke(ctx context.Context, payload *prompt.Payload) (*ai.ChatResponse, error) {
	request := buildRequest(payload, e.cfg.DefaultModel)

	e.obs.Debug(ctx, observability.EventInvokeStart,
		observability.String(observability.AttrLLMModel, request.Model),
		observability.Bool("multimodal", payload.VideoURI != ""))

	response, err := e.provider.SendMessage(ctx, request)
	if err != nil && payload.VideoURI != "" && ai.IsInvalidRequest(err) {
		e.obs.Warn(ctx, observability.EventInvokeFallback,
			observability.String(observability.AttrLLMModel, request.Model),
			observability.Error(err))

		textOnly := *payload
		textOnly.VideoURI = ""
		textOnly.VideoMimeType = ""
		response, err = e.provider.SendMessage(ctx, buildRequest(&textOnly, e.cfg.DefaultModel))
	}
	if err != nil {
		return nil, err
	}

	attrs := []observability.Attribute{
		observability.String(observability.AttrLLMModel, response.Model),
		observability.String(observability.AttrLLMFinishReason, response.FinishReason),
	}
	if response.Usage != nil {
		attrs = append(attrs, observability.Int(observability.AttrLLMTokensTotal, response.Usage.TotalTokens))
	}
	e.obs.Debug(ctx, observability.EventInvokeEnd, attrs...)

	return response, nil
}

// buildRequest converts a synthesized payload into the provider-neutral
// chat request. Video references become multimodal content parts; plain
// payloads stay a single text message.
func buildRequest(payload *prompt.Payload, defaultModel string) ai.ChatRequest {
	model := payload.Model
	if model == "" {
		model = defaultModel
	}

	generation := payload.GenerationConfig
	request := ai.ChatRequest{
		Model:            model,
		SystemPrompt:     payload.SystemPrompt,
		GenerationConfig: &generation,
	}

	if payload.VideoURI == "" {
		request.Messages = []ai.Message{{Role: ai.RoleUser, Content: payload.UserPrompt}}
		return request
	}

	request.Messages = []ai.Message{{
		Role: ai.RoleUser,
		ContentParts: []ai.ContentPart{
			{Type: ai.ContentTypeText, Text: payload.UserPrompt},
			{Type: ai.ContentTypeVideo, Video: &ai.MediaData{
				MimeType: payload.VideoMimeType,
				URI:      payload.VideoURI,
			}},
		},
	}}
	return request
}

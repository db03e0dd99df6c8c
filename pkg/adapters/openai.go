package adapters

import (
	"nexusgate/pkg/proxy/types"
	"nexusgate/pkg/transport"
)

// OpenAI forwards requests to the OpenAI API (or any deployment of it)
// unchanged, with bearer authentication.
type OpenAI struct {
	openaiWire
	cfg Config
}

func newOpenAI(cfg Config) *OpenAI {
	return &OpenAI{cfg: cfg}
}

// Name implements Adapter.
func (a *OpenAI) Name() string { return "openai" }

// BuildRequest implements Adapter.
func (a *OpenAI) BuildRequest(req *types.ChatCompletionRequest, stream bool) (*transport.UpstreamRequest, error) {
	body, err := a.buildBody(req, req.EffectiveModel(a.cfg.ModelID), stream)
	if err != nil {
		return nil, err
	}
	return upstreamPost(chatCompletionsURL(a.cfg.BaseURL), bearerHeader(a.cfg.Credential), body, stream), nil
}

// ParseResponse implements Adapter.
func (a *OpenAI) ParseResponse(body []byte) (*types.ChatCompletionResponse, error) {
	return a.parseResponse(body)
}

// ParseStreamChunk implements Adapter.
func (a *OpenAI) ParseStreamChunk(event []byte) ([]*types.ChatCompletionChunk, bool, error) {
	return a.parseStreamChunk(event)
}

// Framing implements Adapter.
func (a *OpenAI) Framing() Framing { return FramingSSE }

// SupportsStreaming implements Adapter.
func (a *OpenAI) SupportsStreaming() bool { return true }

// SupportsTools implements Adapter.
func (a *OpenAI) SupportsTools() bool { return true }

// SupportsMultipleChoices implements Adapter.
func (a *OpenAI) SupportsMultipleChoices() bool { return true }

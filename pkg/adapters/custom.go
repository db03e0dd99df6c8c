package adapters

import (
	"nexusgate/pkg/proxy/types"
	"nexusgate/pkg/transport"
)

// Custom targets any user-supplied OpenAI-compatible endpoint. The payload
// is the untransformed OpenAI shape, Extra fields included.
type Custom struct {
	openaiWire
	cfg Config
}

func newCustom(cfg Config) *Custom {
	return &Custom{cfg: cfg}
}

// Name implements Adapter.
func (a *Custom) Name() string { return "custom" }

// BuildRequest implements Adapter.
func (a *Custom) BuildRequest(req *types.ChatCompletionRequest, stream bool) (*transport.UpstreamRequest, error) {
	body, err := a.buildBody(req, req.EffectiveModel(a.cfg.ModelID), stream)
	if err != nil {
		return nil, err
	}
	return upstreamPost(chatCompletionsURL(a.cfg.BaseURL), bearerHeader(a.cfg.Credential), body, stream), nil
}

// ParseResponse implements Adapter.
func (a *Custom) ParseResponse(body []byte) (*types.ChatCompletionResponse, error) {
	return a.parseResponse(body)
}

// ParseStreamChunk implements Adapter.
func (a *Custom) ParseStreamChunk(event []byte) ([]*types.ChatCompletionChunk, bool, error) {
	return a.parseStreamChunk(event)
}

// Framing implements Adapter.
func (a *Custom) Framing() Framing { return FramingSSE }

// SupportsStreaming implements Adapter.
func (a *Custom) SupportsStreaming() bool { return true }

// SupportsTools implements Adapter.
func (a *Custom) SupportsTools() bool { return true }

// SupportsMultipleChoices implements Adapter.
func (a *Custom) SupportsMultipleChoices() bool { return true }

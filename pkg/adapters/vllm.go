package adapters

import (
	"nexusgate/pkg/proxy/types"
	"nexusgate/pkg/transport"
)

// VLLM targets a vLLM server's OpenAI-compatible endpoint. The chat schema
// passes through; sampling extensions carried in Extra (top_k,
// repetition_penalty and friends) survive because vLLM understands them.
type VLLM struct {
	openaiWire
	cfg Config
}

func newVLLM(cfg Config) *VLLM {
	return &VLLM{cfg: cfg}
}

// Name implements Adapter.
func (a *VLLM) Name() string { return "vllm" }

// BuildRequest implements Adapter.
func (a *VLLM) BuildRequest(req *types.ChatCompletionRequest, stream bool) (*transport.UpstreamRequest, error) {
	filtered := *req
	// vLLM rejects the OpenAI abuse-monitoring field.
	filtered.User = ""

	body, err := a.buildBody(&filtered, req.EffectiveModel(a.cfg.ModelID), stream)
	if err != nil {
		return nil, err
	}
	return upstreamPost(chatCompletionsURL(a.cfg.BaseURL), bearerHeader(a.cfg.Credential), body, stream), nil
}

// ParseResponse implements Adapter.
func (a *VLLM) ParseResponse(body []byte) (*types.ChatCompletionResponse, error) {
	return a.parseResponse(body)
}

// ParseStreamChunk implements Adapter.
func (a *VLLM) ParseStreamChunk(event []byte) ([]*types.ChatCompletionChunk, bool, error) {
	return a.parseStreamChunk(event)
}

// Framing implements Adapter.
func (a *VLLM) Framing() Framing { return FramingSSE }

// SupportsStreaming implements Adapter.
func (a *VLLM) SupportsStreaming() bool { return true }

// SupportsTools implements Adapter.
func (a *VLLM) SupportsTools() bool { return true }

// SupportsMultipleChoices implements Adapter.
func (a *VLLM) SupportsMultipleChoices() bool { return true }

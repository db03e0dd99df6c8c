package adapters

import (
	"context"

	"nexusgate/pkg/proxy/types"
	"nexusgate/pkg/transport"
)

// Direct executes completions in-process through a caller-supplied handler
// instead of an HTTP backend. It preserves the same request/response
// contract, which makes it the loopback adapter for embedders and tests.
type Direct struct {
	modelID string
	handler DirectHandler
}

// NewDirect builds a Direct adapter. A nil handler yields a bad_request on
// every call until an embedder binds one with SetHandler.
func NewDirect(modelID string, handler DirectHandler) *Direct {
	return &Direct{modelID: modelID, handler: handler}
}

// SetHandler binds the in-process completion function.
func (a *Direct) SetHandler(handler DirectHandler) {
	a.handler = handler
}

// Name implements Adapter.
func (a *Direct) Name() string { return "direct" }

// Invoke implements Invoker.
func (a *Direct) Invoke(ctx context.Context, req *types.ChatCompletionRequest) (*types.ChatCompletionResponse, error) {
	if a.handler == nil {
		return nil, types.NewError(types.KindBadRequest, "direct mode has no bound handler")
	}

	resp, err := a.handler(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.ID == "" {
		resp.ID = newCompletionID()
	}
	if resp.Object == "" {
		resp.Object = types.ObjectChatCompletion
	}
	if resp.Created == 0 {
		resp.Created = clock().Unix()
	}
	if resp.Model == "" {
		resp.Model = req.EffectiveModel(a.modelID)
	}
	return resp, nil
}

// BuildRequest implements Adapter. Direct mode never reaches the
// transport.
func (a *Direct) BuildRequest(req *types.ChatCompletionRequest, stream bool) (*transport.UpstreamRequest, error) {
	return nil, types.NewError(types.KindInternal, "direct adapter does not build HTTP requests")
}

// ParseResponse implements Adapter.
func (a *Direct) ParseResponse(body []byte) (*types.ChatCompletionResponse, error) {
	return nil, types.NewError(types.KindInternal, "direct adapter does not parse HTTP responses")
}

// ParseStreamChunk implements Adapter.
func (a *Direct) ParseStreamChunk(event []byte) ([]*types.ChatCompletionChunk, bool, error) {
	return nil, false, types.NewError(types.KindInternal, "direct adapter does not parse stream chunks")
}

// Framing implements Adapter.
func (a *Direct) Framing() Framing { return FramingNone }

// SupportsStreaming implements Adapter.
func (a *Direct) SupportsStreaming() bool { return false }

// SupportsTools implements Adapter.
func (a *Direct) SupportsTools() bool { return true }

// SupportsMultipleChoices implements Adapter.
func (a *Direct) SupportsMultipleChoices() bool { return false }

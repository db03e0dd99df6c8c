package adapters

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"nexusgate/pkg/proxy/types"
	"nexusgate/pkg/transport"
)

// openaiWire holds the logic shared by every adapter that speaks the
// OpenAI chat schema natively: vLLM, OpenAI, Azure, and custom endpoints.
type openaiWire struct{}

// buildBody serializes the request with the effective model and stream
// flag applied. The input request is not mutated.
func (openaiWire) buildBody(req *types.ChatCompletionRequest, model string, stream bool) ([]byte, error) {
	out := *req
	out.Model = model
	out.Stream = stream

	body, err := json.Marshal(&out)
	if err != nil {
		return nil, types.WrapError(types.KindInternal, "failed to serialize upstream request", err)
	}
	return body, nil
}

// parseResponse decodes an OpenAI-shaped unary body.
func (openaiWire) parseResponse(body []byte) (*types.ChatCompletionResponse, error) {
	var resp types.ChatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, types.WrapError(types.KindMalformedUpstream, "upstream response is not valid JSON", err)
	}
	if len(resp.Choices) == 0 {
		return nil, types.NewError(types.KindMalformedUpstream, "upstream response has no choices")
	}
	if resp.Object == "" {
		resp.Object = types.ObjectChatCompletion
	}
	return &resp, nil
}

// parseStreamChunk decodes one SSE data payload. The [DONE] sentinel is
// the terminal record.
func (openaiWire) parseStreamChunk(event []byte) ([]*types.ChatCompletionChunk, bool, error) {
	payload := bytes.TrimSpace(event)
	if string(payload) == "[DONE]" {
		return nil, true, nil
	}

	var chunk types.ChatCompletionChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return nil, false, types.WrapError(types.KindMalformedUpstream, "upstream stream chunk is not valid JSON", err)
	}
	if chunk.Object == "" {
		chunk.Object = types.ObjectChatCompletionChunk
	}
	return []*types.ChatCompletionChunk{&chunk}, false, nil
}

// chatCompletionsURL joins a base URL with the /v1/chat/completions path,
// tolerating bases that already include /v1 or the full path.
func chatCompletionsURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasSuffix(base, "/chat/completions"):
		return base
	case strings.HasSuffix(base, "/v1"):
		return base + "/chat/completions"
	default:
		return base + "/v1/chat/completions"
	}
}

// bearerHeader builds an Authorization header when a credential is set.
func bearerHeader(credential string) http.Header {
	h := make(http.Header)
	if credential != "" {
		h.Set("Authorization", fmt.Sprintf("Bearer %s", credential))
	}
	return h
}

// upstreamPost assembles a POST UpstreamRequest.
func upstreamPost(url string, header http.Header, body []byte, streaming bool) *transport.UpstreamRequest {
	return &transport.UpstreamRequest{
		Method:    http.MethodPost,
		URL:       url,
		Header:    header,
		Body:      body,
		Streaming: streaming,
	}
}

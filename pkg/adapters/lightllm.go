package adapters

import (
	"bytes"
	"encoding/json"
	"strings"

	"nexusgate/pkg/proxy/types"
	"nexusgate/pkg/transport"
)

// Role tokens understood by LightLLM-style token-template servers.
const (
	lightllmSystemTag    = "<|system|>"
	lightllmUserTag      = "<|user|>"
	lightllmAssistantTag = "<|assistant|>"
)

// LightLLM targets a LightLLM-style generate server. The chat history is
// collapsed into a single role-token prompt; tool messages are dropped
// because the backend has no tool semantics.
type LightLLM struct {
	cfg Config
}

func newLightLLM(cfg Config) *LightLLM {
	return &LightLLM{cfg: cfg}
}

// lightllmRequest is the generate-endpoint payload.
type lightllmRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters lightllmParameters `json:"parameters"`
}

// lightllmParameters mirrors the sampling parameters the backend accepts.
type lightllmParameters struct {
	MaxNewTokens  int      `json:"max_new_tokens,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	TopP          *float64 `json:"top_p,omitempty"`
	StopSequences []string `json:"stop_sequences,omitempty"`
	DoSample      bool     `json:"do_sample,omitempty"`
}

// lightllmResponse is the unary generate response.
type lightllmResponse struct {
	GeneratedText  string `json:"generated_text"`
	FinishedReason string `json:"finish_reason,omitempty"`
	PromptTokens   int    `json:"prompt_tokens,omitempty"`
	GeneratedCount int    `json:"generated_tokens,omitempty"`
}

// lightllmStreamRecord is one newline-delimited streaming record.
type lightllmStreamRecord struct {
	Token *struct {
		Text string `json:"text"`
	} `json:"token,omitempty"`
	GeneratedText *string `json:"generated_text,omitempty"`
	Finished      bool    `json:"finished,omitempty"`
}

// Name implements Adapter.
func (a *LightLLM) Name() string { return "lightllm" }

// BuildRequest implements Adapter.
func (a *LightLLM) BuildRequest(req *types.ChatCompletionRequest, stream bool) (*transport.UpstreamRequest, error) {
	payload := lightllmRequest{
		Inputs: BuildPrompt(req.Messages),
		Parameters: lightllmParameters{
			Temperature:   req.Temperature,
			TopP:          req.TopP,
			StopSequences: req.StopList(),
			DoSample:      req.Temperature != nil && *req.Temperature > 0,
		},
	}
	if req.MaxTokens != nil {
		payload.Parameters.MaxNewTokens = *req.MaxTokens
	}

	body, err := json.Marshal(&payload)
	if err != nil {
		return nil, types.WrapError(types.KindInternal, "failed to serialize upstream request", err)
	}

	url := strings.TrimRight(a.cfg.BaseURL, "/") + "/generate"
	if stream {
		url += "_stream"
	}
	return upstreamPost(url, bearerHeader(a.cfg.Credential), body, stream), nil
}

// BuildPrompt collapses a chat history into the role-token template. Tool
// messages are dropped; the prompt ends with an open assistant tag so the
// backend continues the conversation.
func BuildPrompt(messages []types.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		var tag string
		switch msg.Role {
		case types.RoleSystem:
			tag = lightllmSystemTag
		case types.RoleUser:
			tag = lightllmUserTag
		case types.RoleAssistant:
			tag = lightllmAssistantTag
		case types.RoleTool:
			continue
		default:
			continue
		}
		b.WriteString(tag)
		b.WriteString("\n")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	b.WriteString(lightllmAssistantTag)
	b.WriteString("\n")
	return b.String()
}

// ParseResponse implements Adapter. The generated text is wrapped into an
// OpenAI response with a synthesized id and timestamp.
func (a *LightLLM) ParseResponse(body []byte) (*types.ChatCompletionResponse, error) {
	var resp lightllmResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, types.WrapError(types.KindMalformedUpstream, "upstream response is not valid JSON", err)
	}

	finish := types.FinishReasonStop
	if resp.FinishedReason == "length" {
		finish = types.FinishReasonLength
	}

	out := &types.ChatCompletionResponse{
		ID:      newCompletionID(),
		Object:  types.ObjectChatCompletion,
		Created: clock().Unix(),
		Model:   a.cfg.ModelID,
		Choices: []types.Choice{{
			Index: 0,
			Message: types.Message{
				Role:    types.RoleAssistant,
				Content: resp.GeneratedText,
			},
			FinishReason: finish,
		}},
		Usage: types.Usage{
			PromptTokens:     resp.PromptTokens,
			CompletionTokens: resp.GeneratedCount,
			TotalTokens:      resp.PromptTokens + resp.GeneratedCount,
		},
	}
	return out, nil
}

// ParseStreamChunk implements Adapter. Each newline-delimited record maps
// to at most one delta; a record with finished=true ends the stream.
func (a *LightLLM) ParseStreamChunk(event []byte) ([]*types.ChatCompletionChunk, bool, error) {
	line := bytes.TrimSpace(event)
	if len(line) == 0 {
		return nil, false, nil
	}

	var record lightllmStreamRecord
	if err := json.Unmarshal(line, &record); err != nil {
		return nil, false, types.WrapError(types.KindMalformedUpstream, "upstream stream record is not valid JSON", err)
	}

	delta := ""
	if record.Token != nil {
		delta = record.Token.Text
	} else if record.GeneratedText != nil && !record.Finished {
		delta = *record.GeneratedText
	}

	var chunks []*types.ChatCompletionChunk
	if delta != "" || record.Finished {
		chunk := &types.ChatCompletionChunk{
			ID:      newCompletionID(),
			Object:  types.ObjectChatCompletionChunk,
			Created: clock().Unix(),
			Model:   a.cfg.ModelID,
			Choices: []types.ChunkChoice{{
				Index: 0,
				Delta: types.Delta{Content: delta},
			}},
		}
		if record.Finished {
			chunk.Choices[0].FinishReason = types.FinishReasonStop
		}
		chunks = append(chunks, chunk)
	}
	return chunks, record.Finished, nil
}

// Framing implements Adapter.
func (a *LightLLM) Framing() Framing { return FramingNDJSON }

// SupportsStreaming implements Adapter.
func (a *LightLLM) SupportsStreaming() bool { return true }

// SupportsTools implements Adapter.
func (a *LightLLM) SupportsTools() bool { return false }

// SupportsMultipleChoices implements Adapter.
func (a *LightLLM) SupportsMultipleChoices() bool { return false }

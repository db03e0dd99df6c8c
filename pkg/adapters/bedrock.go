package adapters

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"nexusgate/pkg/proxy/types"
	"nexusgate/pkg/transport"
)

// modelFamily selects the Bedrock payload shape for a model identifier.
type modelFamily int

const (
	familyClaude modelFamily = iota
	familyLlama
	familyTitan
)

// Bedrock targets AWS Bedrock's InvokeModel API. Each model family has its
// own payload shape, and every request is SigV4-signed. Streaming uses the
// AWS binary event-stream framing, which is out of reach without the AWS
// SDK, so streamed callers get the synthetic pipeline.
type Bedrock struct {
	cfg    Config
	family modelFamily
	url    string
}

func newBedrock(cfg Config) (*Bedrock, error) {
	if cfg.AWSRegion == "" {
		return nil, fmt.Errorf("aws backend requires a region")
	}
	if cfg.AWSAccessKeyID == "" || cfg.AWSSecretAccessKey == "" {
		return nil, fmt.Errorf("aws backend requires an access key pair")
	}

	base := cfg.BaseURL
	if base == "" || !strings.Contains(base, "://") {
		base = fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com", cfg.AWSRegion)
	}

	return &Bedrock{
		cfg:    cfg,
		family: detectFamily(cfg.ModelID),
		url: fmt.Sprintf("%s/model/%s/invoke",
			strings.TrimRight(base, "/"), awsEscape(cfg.ModelID)),
	}, nil
}

// detectFamily recognizes the model family from the Bedrock model id.
func detectFamily(modelID string) modelFamily {
	id := strings.ToLower(modelID)
	switch {
	case strings.Contains(id, "anthropic") || strings.Contains(id, "claude"):
		return familyClaude
	case strings.Contains(id, "llama") || strings.Contains(id, "meta"):
		return familyLlama
	default:
		return familyTitan
	}
}

// Name implements Adapter.
func (a *Bedrock) Name() string { return "aws" }

// BuildRequest implements Adapter.
func (a *Bedrock) BuildRequest(req *types.ChatCompletionRequest, stream bool) (*transport.UpstreamRequest, error) {
	var payload any
	switch a.family {
	case familyClaude:
		payload = a.claudePayload(req)
	case familyLlama:
		payload = a.llamaPayload(req)
	default:
		payload = a.titanPayload(req)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, types.WrapError(types.KindInternal, "failed to serialize upstream request", err)
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set("Accept", "application/json")
	creds := sigv4Credentials{
		AccessKeyID:     a.cfg.AWSAccessKeyID,
		SecretAccessKey: a.cfg.AWSSecretAccessKey,
		SessionToken:    a.cfg.AWSSessionToken,
	}
	if err := signSigV4(header, http.MethodPost, a.url, body, a.cfg.AWSRegion, "bedrock", creds, clock()); err != nil {
		return nil, types.WrapError(types.KindInternal, "failed to sign upstream request", err)
	}

	return upstreamPost(a.url, header, body, false), nil
}

// claudePayload shapes the Anthropic messages API body.
func (a *Bedrock) claudePayload(req *types.ChatCompletionRequest) any {
	type claudeMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	var system string
	var messages []claudeMessage
	for _, msg := range req.Messages {
		switch msg.Role {
		case types.RoleSystem:
			if system != "" {
				system += "\n"
			}
			system += msg.Content
		case types.RoleUser, types.RoleAssistant:
			messages = append(messages, claudeMessage{Role: msg.Role, Content: msg.Content})
		}
	}

	maxTokens := 1024
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	payload := map[string]any{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        maxTokens,
		"messages":          messages,
	}
	if system != "" {
		payload["system"] = system
	}
	if req.Temperature != nil {
		payload["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		payload["top_p"] = *req.TopP
	}
	if stop := req.StopList(); len(stop) > 0 {
		payload["stop_sequences"] = stop
	}
	return payload
}

// llamaPayload shapes the Llama text-generation body.
func (a *Bedrock) llamaPayload(req *types.ChatCompletionRequest) any {
	payload := map[string]any{
		"prompt": BuildPrompt(req.Messages),
	}
	if req.MaxTokens != nil {
		payload["max_gen_len"] = *req.MaxTokens
	}
	if req.Temperature != nil {
		payload["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		payload["top_p"] = *req.TopP
	}
	return payload
}

// titanPayload shapes the Titan text-generation body.
func (a *Bedrock) titanPayload(req *types.ChatCompletionRequest) any {
	config := map[string]any{}
	if req.MaxTokens != nil {
		config["maxTokenCount"] = *req.MaxTokens
	}
	if req.Temperature != nil {
		config["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		config["topP"] = *req.TopP
	}
	if stop := req.StopList(); len(stop) > 0 {
		config["stopSequences"] = stop
	}
	return map[string]any{
		"inputText":            BuildPrompt(req.Messages),
		"textGenerationConfig": config,
	}
}

// Bedrock response shapes per family.

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type llamaResponse struct {
	Generation           string `json:"generation"`
	PromptTokenCount     int    `json:"prompt_token_count"`
	GenerationTokenCount int    `json:"generation_token_count"`
	StopReason           string `json:"stop_reason"`
}

type titanResponse struct {
	InputTextTokenCount int `json:"inputTextTokenCount"`
	Results             []struct {
		TokenCount       int    `json:"tokenCount"`
		OutputText       string `json:"outputText"`
		CompletionReason string `json:"completionReason"`
	} `json:"results"`
}

// ParseResponse implements Adapter, normalizing each family's body to the
// OpenAI shape.
func (a *Bedrock) ParseResponse(body []byte) (*types.ChatCompletionResponse, error) {
	var content, finish string
	var usage types.Usage

	switch a.family {
	case familyClaude:
		var resp claudeResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, types.WrapError(types.KindMalformedUpstream, "upstream response is not valid JSON", err)
		}
		for _, block := range resp.Content {
			if block.Type == "text" {
				content += block.Text
			}
		}
		finish = types.FinishReasonStop
		if resp.StopReason == "max_tokens" {
			finish = types.FinishReasonLength
		}
		usage = types.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		}

	case familyLlama:
		var resp llamaResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, types.WrapError(types.KindMalformedUpstream, "upstream response is not valid JSON", err)
		}
		content = resp.Generation
		finish = types.FinishReasonStop
		if resp.StopReason == "length" {
			finish = types.FinishReasonLength
		}
		usage = types.Usage{
			PromptTokens:     resp.PromptTokenCount,
			CompletionTokens: resp.GenerationTokenCount,
			TotalTokens:      resp.PromptTokenCount + resp.GenerationTokenCount,
		}

	default:
		var resp titanResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, types.WrapError(types.KindMalformedUpstream, "upstream response is not valid JSON", err)
		}
		if len(resp.Results) == 0 {
			return nil, types.NewError(types.KindMalformedUpstream, "upstream response has no results")
		}
		content = resp.Results[0].OutputText
		finish = types.FinishReasonStop
		if resp.Results[0].CompletionReason == "LENGTH" {
			finish = types.FinishReasonLength
		}
		usage = types.Usage{
			PromptTokens:     resp.InputTextTokenCount,
			CompletionTokens: resp.Results[0].TokenCount,
			TotalTokens:      resp.InputTextTokenCount + resp.Results[0].TokenCount,
		}
	}

	return &types.ChatCompletionResponse{
		ID:      newCompletionID(),
		Object:  types.ObjectChatCompletion,
		Created: clock().Unix(),
		Model:   a.cfg.ModelID,
		Choices: []types.Choice{{
			Index:        0,
			Message:      types.Message{Role: types.RoleAssistant, Content: content},
			FinishReason: finish,
		}},
		Usage: usage,
	}, nil
}

// ParseStreamChunk implements Adapter. Bedrock streaming is not consumed
// natively; the synthetic pipeline handles streamed callers.
func (a *Bedrock) ParseStreamChunk(event []byte) ([]*types.ChatCompletionChunk, bool, error) {
	return nil, false, types.NewError(types.KindInternal, "bedrock adapter has no native stream parser")
}

// Framing implements Adapter.
func (a *Bedrock) Framing() Framing { return FramingNone }

// SupportsStreaming implements Adapter.
func (a *Bedrock) SupportsStreaming() bool { return false }

// SupportsTools implements Adapter.
func (a *Bedrock) SupportsTools() bool { return false }

// SupportsMultipleChoices implements Adapter.
func (a *Bedrock) SupportsMultipleChoices() bool { return false }

package types

import (
	"encoding/json"
	"fmt"
)

// Message role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Tool type constants.
const (
	ToolTypeFunction = "function"
)

// MaxStopSequences is the maximum number of stop sequences accepted on a
// request, matching the OpenAI wire contract.
const MaxStopSequences = 4

// ChatCompletionRequest is an OpenAI-shaped chat completion request.
//
// Optional fields are pointers so validation can tell an omitted field from
// an explicit zero. Unknown fields survive in Extra.
type ChatCompletionRequest struct {
	// Model is the model identifier. When empty the configured default
	// model is used.
	Model string `json:"model,omitempty"`

	// Messages is the conversation history. Must be non-empty.
	Messages []Message `json:"messages"`

	// MaxTokens limits the number of tokens to generate.
	MaxTokens *int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0 to 2.0).
	Temperature *float64 `json:"temperature,omitempty"`

	// TopP controls nucleus sampling (0.0 to 1.0).
	TopP *float64 `json:"top_p,omitempty"`

	// N is the number of choices to generate (default 1).
	N *int `json:"n,omitempty"`

	// Stream requests an SSE response.
	Stream bool `json:"stream,omitempty"`

	// Stop holds up to MaxStopSequences stop sequences. The wire form may
	// be a single string or an array of strings.
	Stop *StopSequences `json:"stop,omitempty"`

	// PresencePenalty ranges -2.0 to 2.0.
	PresencePenalty *float64 `json:"presence_penalty,omitempty"`

	// FrequencyPenalty ranges -2.0 to 2.0.
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`

	// User is an opaque end-user identifier for abuse monitoring.
	User string `json:"user,omitempty"`

	// Tools is the list of tools the model may call.
	Tools []Tool `json:"tools,omitempty"`

	// ToolChoice is "auto", "none", or a named-function object.
	ToolChoice json.RawMessage `json:"tool_choice,omitempty"`

	// ResponseFormat is {"type":"text"}, {"type":"json_object"}, or a
	// JSON-schema object. Passed through untouched.
	ResponseFormat json.RawMessage `json:"response_format,omitempty"`

	// Extra preserves unknown top-level fields for backends that consume
	// them. Never interpreted by the gateway.
	Extra map[string]json.RawMessage `json:"-"`
}

// Message is a single conversation message.
type Message struct {
	// Role is one of system, user, assistant, or tool.
	Role string `json:"role"`

	// Content is the message text. May be empty for assistant messages
	// that carry only tool calls.
	Content string `json:"content"`

	// Name optionally identifies the sender.
	Name string `json:"name,omitempty"`

	// ToolCalls holds tool invocations issued by an assistant message.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a tool message to the assistant tool call it
	// answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the function name and its JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool declares a callable tool.
type Tool struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition declares a callable function and its parameter schema.
type FunctionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// StopSequences accepts either a JSON string or an array of strings on the
// wire and always marshals back to the form it was received in.
type StopSequences struct {
	// Sequences is the normalized list form.
	Sequences []string

	// single records that the wire form was a bare string.
	single bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *StopSequences) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		s.Sequences = []string{one}
		s.single = true
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("stop must be a string or an array of strings")
	}
	s.Sequences = many
	s.single = false
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s StopSequences) MarshalJSON() ([]byte, error) {
	if s.single && len(s.Sequences) == 1 {
		return json.Marshal(s.Sequences[0])
	}
	return json.Marshal(s.Sequences)
}

// StopList returns the stop sequences of a request, or nil when none were
// provided.
func (r *ChatCompletionRequest) StopList() []string {
	if r.Stop == nil {
		return nil
	}
	return r.Stop.Sequences
}

// requestAlias mirrors ChatCompletionRequest for (un)marshaling without
// recursing into the custom methods below.
type requestAlias ChatCompletionRequest

// knownRequestFields enumerates the struct-mapped top-level keys so unknown
// ones can be separated into Extra.
var knownRequestFields = map[string]bool{
	"model": true, "messages": true, "max_tokens": true,
	"temperature": true, "top_p": true, "n": true, "stream": true,
	"stop": true, "presence_penalty": true, "frequency_penalty": true,
	"user": true, "tools": true, "tool_choice": true,
	"response_format": true,
}

// UnmarshalJSON decodes the request and stashes unknown top-level fields in
// Extra so they can be round-tripped to backends that understand them.
func (r *ChatCompletionRequest) UnmarshalJSON(data []byte) error {
	var alias requestAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key := range raw {
		if knownRequestFields[key] {
			continue
		}
		if alias.Extra == nil {
			alias.Extra = make(map[string]json.RawMessage)
		}
		alias.Extra[key] = raw[key]
	}

	*r = ChatCompletionRequest(alias)
	return nil
}

// MarshalJSON re-emits the request including any preserved unknown fields.
func (r ChatCompletionRequest) MarshalJSON() ([]byte, error) {
	alias := requestAlias(r)
	alias.Extra = nil

	base, err := json.Marshal(alias)
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for key, value := range r.Extra {
		if _, exists := merged[key]; !exists {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

// ChoiceCount returns the effective n value, defaulting to 1.
func (r *ChatCompletionRequest) ChoiceCount() int {
	if r.N == nil || *r.N < 1 {
		return 1
	}
	return *r.N
}

// EffectiveModel returns the request model or the supplied default when the
// request omits one.
func (r *ChatCompletionRequest) EffectiveModel(defaultModel string) string {
	if r.Model != "" {
		return r.Model
	}
	return defaultModel
}

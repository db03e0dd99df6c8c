package types

import "fmt"

// Validate checks a chat completion request against the ingress rules.
// It returns a bad_request *Error naming the offending field, or nil.
func (r *ChatCompletionRequest) Validate() error {
	if len(r.Messages) == 0 {
		return NewValidationError("messages", "messages must be a non-empty array")
	}

	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 2) {
		return NewValidationError("temperature",
			fmt.Sprintf("temperature must be between 0.0 and 2.0, got %g", *r.Temperature))
	}

	if r.TopP != nil && (*r.TopP < 0 || *r.TopP > 1) {
		return NewValidationError("top_p",
			fmt.Sprintf("top_p must be between 0.0 and 1.0, got %g", *r.TopP))
	}

	if r.MaxTokens != nil && *r.MaxTokens < 1 {
		return NewValidationError("max_tokens",
			fmt.Sprintf("max_tokens must be a positive integer, got %d", *r.MaxTokens))
	}

	if r.N != nil && *r.N < 1 {
		return NewValidationError("n",
			fmt.Sprintf("n must be a positive integer, got %d", *r.N))
	}

	if r.PresencePenalty != nil && (*r.PresencePenalty < -2 || *r.PresencePenalty > 2) {
		return NewValidationError("presence_penalty",
			fmt.Sprintf("presence_penalty must be between -2.0 and 2.0, got %g", *r.PresencePenalty))
	}

	if r.FrequencyPenalty != nil && (*r.FrequencyPenalty < -2 || *r.FrequencyPenalty > 2) {
		return NewValidationError("frequency_penalty",
			fmt.Sprintf("frequency_penalty must be between -2.0 and 2.0, got %g", *r.FrequencyPenalty))
	}

	if r.Stop != nil && len(r.Stop.Sequences) > MaxStopSequences {
		return NewValidationError("stop",
			fmt.Sprintf("stop accepts at most %d sequences, got %d", MaxStopSequences, len(r.Stop.Sequences)))
	}

	return r.validateMessages()
}

// validateMessages checks roles and tool-message ordering: a tool message
// must answer a tool call introduced by a preceding assistant message.
func (r *ChatCompletionRequest) validateMessages() error {
	seenToolCallIDs := make(map[string]bool)

	for i, msg := range r.Messages {
		switch msg.Role {
		case RoleSystem, RoleUser:
			// No extra constraints.
		case RoleAssistant:
			for _, tc := range msg.ToolCalls {
				if tc.ID != "" {
					seenToolCallIDs[tc.ID] = true
				}
			}
		case RoleTool:
			if msg.ToolCallID == "" {
				return NewValidationError(
					fmt.Sprintf("messages[%d].tool_call_id", i),
					"tool messages must carry a tool_call_id")
			}
			if !seenToolCallIDs[msg.ToolCallID] {
				return NewValidationError(
					fmt.Sprintf("messages[%d].tool_call_id", i),
					fmt.Sprintf("tool_call_id %q does not reference a preceding assistant tool call", msg.ToolCallID))
			}
		default:
			return NewValidationError(
				fmt.Sprintf("messages[%d].role", i),
				fmt.Sprintf("unrecognized role %q", msg.Role))
		}

		if msg.Role != RoleAssistant && len(msg.ToolCalls) > 0 {
			return NewValidationError(
				fmt.Sprintf("messages[%d].tool_calls", i),
				"only assistant messages may carry tool_calls")
		}
	}

	return nil
}

package tokens

import (
	"unicode/utf8"

	"nexusgate/pkg/proxy/types"
)

// charsPerToken is the standing rough ratio for English-like text.
const charsPerToken = 4

// Estimate approximates the token count of a text.
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	n := utf8.RuneCountInString(text)
	estimated := (n + charsPerToken - 1) / charsPerToken
	if estimated < 1 {
		return 1
	}
	return estimated
}

// EstimateMessages approximates the prompt token count of a conversation,
// charging a small per-message overhead for the role framing.
func EstimateMessages(messages []types.Message) int {
	const perMessageOverhead = 4

	total := 0
	for _, msg := range messages {
		total += Estimate(msg.Content) + perMessageOverhead
		for _, tc := range msg.ToolCalls {
			total += Estimate(tc.Function.Name) + Estimate(tc.Function.Arguments)
		}
	}
	return total
}

// FillUsage completes a response's usage block when the backend omitted
// it, estimating from the request messages and response content.
func FillUsage(resp *types.ChatCompletionResponse, messages []types.Message) {
	if resp.Usage.TotalTokens > 0 {
		return
	}

	if resp.Usage.PromptTokens == 0 {
		resp.Usage.PromptTokens = EstimateMessages(messages)
	}
	if resp.Usage.CompletionTokens == 0 {
		for _, choice := range resp.Choices {
			resp.Usage.CompletionTokens += Estimate(choice.Message.Content)
		}
	}
	resp.Usage.TotalTokens = resp.Usage.PromptTokens + resp.Usage.CompletionTokens
}

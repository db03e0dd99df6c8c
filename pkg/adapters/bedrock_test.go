package adapters

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"nexusgate/pkg/proxy/types"
)

func bedrockConfig(modelID string) Config {
	return Config{
		Kind:               KindAWS,
		ModelID:            modelID,
		AWSRegion:          "us-east-1",
		AWSAccessKeyID:     "AKIDEXAMPLE",
		AWSSecretAccessKey: "secret",
	}
}

func TestDetectFamily(t *testing.T) {
	tests := []struct {
		model string
		want  modelFamily
	}{
		{"anthropic.claude-3-sonnet-20240229-v1:0", familyClaude},
		{"meta.llama3-8b-instruct-v1:0", familyLlama},
		{"amazon.titan-text-express-v1", familyTitan},
	}
	for _, tt := range tests {
		if got := detectFamily(tt.model); got != tt.want {
			t.Errorf("detectFamily(%q) = %v, want %v", tt.model, got, tt.want)
		}
	}
}

func TestBedrock_ClaudePayload(t *testing.T) {
	a, err := newBedrock(bedrockConfig("anthropic.claude-3-sonnet-20240229-v1:0"))
	if err != nil {
		t.Fatalf("newBedrock failed: %v", err)
	}

	req := &types.ChatCompletionRequest{
		Messages: []types.Message{
			{Role: types.RoleSystem, Content: "Be terse."},
			{Role: types.RoleUser, Content: "Hi"},
		},
	}

	up, err := a.BuildRequest(req, false)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}

	if !strings.Contains(up.URL, "/model/anthropic.claude-3-sonnet-20240229-v1%3A0/invoke") {
		t.Errorf("unexpected URL %q", up.URL)
	}

	var payload map[string]any
	if err := json.Unmarshal(up.Body, &payload); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if payload["anthropic_version"] != "bedrock-2023-05-31" {
		t.Errorf("anthropic_version missing: %v", payload)
	}
	if payload["system"] != "Be terse." {
		t.Errorf("system prompt not lifted: %v", payload["system"])
	}
	msgs := payload["messages"].([]any)
	if len(msgs) != 1 {
		t.Errorf("system message must not appear in messages: %v", msgs)
	}

	if auth := up.Header.Get("Authorization"); !strings.HasPrefix(auth, "AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/") {
		t.Errorf("request not signed: %q", auth)
	}
	if up.Header.Get("X-Amz-Date") == "" {
		t.Error("X-Amz-Date not set")
	}
}

func TestBedrock_ParseClaudeResponse(t *testing.T) {
	a, _ := newBedrock(bedrockConfig("anthropic.claude-3-sonnet-20240229-v1:0"))

	body := `{"content":[{"type":"text","text":"Hello"}],"stop_reason":"end_turn",` +
		`"usage":{"input_tokens":5,"output_tokens":2}}`
	resp, err := a.ParseResponse([]byte(body))
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}
	if resp.Choices[0].Message.Content != "Hello" {
		t.Errorf("content = %q", resp.Choices[0].Message.Content)
	}
	if resp.Usage.TotalTokens != 7 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestBedrock_ParseLlamaResponse(t *testing.T) {
	a, _ := newBedrock(bedrockConfig("meta.llama3-8b-instruct-v1:0"))

	body := `{"generation":"Hi there","prompt_token_count":4,"generation_token_count":3,"stop_reason":"length"}`
	resp, err := a.ParseResponse([]byte(body))
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}
	if resp.Choices[0].FinishReason != types.FinishReasonLength {
		t.Errorf("finish_reason = %q", resp.Choices[0].FinishReason)
	}
}

func TestBedrock_ParseTitanResponse(t *testing.T) {
	a, _ := newBedrock(bedrockConfig("amazon.titan-text-express-v1"))

	body := `{"inputTextTokenCount":4,"results":[{"tokenCount":2,"outputText":"Hey","completionReason":"FINISH"}]}`
	resp, err := a.ParseResponse([]byte(body))
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}
	if resp.Choices[0].Message.Content != "Hey" {
		t.Errorf("content = %q", resp.Choices[0].Message.Content)
	}
}

func TestSignSigV4_Deterministic(t *testing.T) {
	at := time.Date(2024, 1, 15, 12, 30, 0, 0, time.UTC)
	creds := sigv4Credentials{AccessKeyID: "AKIDEXAMPLE", SecretAccessKey: "secret"}

	sign := func() string {
		h := make(http.Header)
		h.Set("Content-Type", "application/json")
		if err := signSigV4(h, http.MethodPost,
			"https://bedrock-runtime.us-east-1.amazonaws.com/model/m/invoke",
			[]byte(`{}`), "us-east-1", "bedrock", creds, at); err != nil {
			t.Fatalf("sign failed: %v", err)
		}
		return h.Get("Authorization")
	}

	first, second := sign(), sign()
	if first != second {
		t.Error("signature must be deterministic for identical inputs")
	}
	if !strings.Contains(first, "/20240115/us-east-1/bedrock/aws4_request") {
		t.Errorf("credential scope wrong: %q", first)
	}
	if !strings.Contains(first, "SignedHeaders=") || !strings.Contains(first, "Signature=") {
		t.Errorf("authorization header malformed: %q", first)
	}
}

func TestAwsEscape(t *testing.T) {
	if got := awsEscape("a b~c:d"); got != "a%20b~c%3Ad" {
		t.Errorf("awsEscape = %q", got)
	}
}

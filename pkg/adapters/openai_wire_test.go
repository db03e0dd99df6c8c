package adapters

import (
	"encoding/json"
	"strings"
	"testing"

	"nexusgate/pkg/proxy/types"
)

func TestOpenAI_BuildRequest(t *testing.T) {
	a := newOpenAI(Config{BaseURL: "https://api.openai.com/v1", ModelID: "gpt-4o-mini", Credential: "sk-test"})

	up, err := a.BuildRequest(userReq("Hi"), false)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	if up.URL != "https://api.openai.com/v1/chat/completions" {
		t.Errorf("unexpected URL %q", up.URL)
	}
	if got := up.Header.Get("Authorization"); got != "Bearer sk-test" {
		t.Errorf("auth header = %q", got)
	}

	var body map[string]any
	if err := json.Unmarshal(up.Body, &body); err != nil {
		t.Fatalf("body not JSON: %v", err)
	}
	if body["model"] != "gpt-4o-mini" {
		t.Errorf("default model not applied: %v", body["model"])
	}
	if _, set := body["stream"]; set {
		t.Error("stream=false must be omitted")
	}
}

func TestOpenAI_RoundTrip(t *testing.T) {
	// A response the adapter produced must survive parse → marshal →
	// parse unchanged.
	a := newOpenAI(Config{BaseURL: "https://api.openai.com"})

	raw := `{"id":"chatcmpl-1","object":"chat.completion","created":1700000000,` +
		`"model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant",` +
		`"content":"Hello"},"finish_reason":"stop"}],"usage":{"prompt_tokens":2,` +
		`"completion_tokens":1,"total_tokens":3}}`

	first, err := a.ParseResponse([]byte(raw))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	reencoded, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	second, err := a.ParseResponse(reencoded)
	if err != nil {
		t.Fatalf("reparse failed: %v", err)
	}

	if second.ID != first.ID || second.Choices[0].Message.Content != first.Choices[0].Message.Content ||
		second.Usage != first.Usage || second.Choices[0].FinishReason != first.Choices[0].FinishReason {
		t.Errorf("round trip drifted:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestOpenAI_ParseResponse_NoChoices(t *testing.T) {
	a := newOpenAI(Config{})
	_, err := a.ParseResponse([]byte(`{"id":"x","choices":[]}`))

	ge := types.AsError(err)
	if ge.Kind != types.KindMalformedUpstream {
		t.Errorf("expected malformed_upstream, got %v", err)
	}
}

func TestOpenAI_ParseStreamChunk(t *testing.T) {
	a := newOpenAI(Config{})

	chunks, terminal, err := a.ParseStreamChunk([]byte(
		`{"id":"chatcmpl-1","object":"chat.completion.chunk","created":1,` +
			`"model":"m","choices":[{"index":0,"delta":{"content":"Hi"}}]}`))
	if err != nil || terminal {
		t.Fatalf("unexpected: %v %v", terminal, err)
	}
	if len(chunks) != 1 || chunks[0].Choices[0].Delta.Content != "Hi" {
		t.Errorf("unexpected chunks: %+v", chunks)
	}

	_, terminal, err = a.ParseStreamChunk([]byte("[DONE]"))
	if err != nil || !terminal {
		t.Errorf("[DONE] must be terminal: %v %v", terminal, err)
	}

	_, _, err = a.ParseStreamChunk([]byte("garbage"))
	if types.AsError(err).Kind != types.KindMalformedUpstream {
		t.Errorf("expected malformed_upstream, got %v", err)
	}
}

func TestVLLM_StripsUserField(t *testing.T) {
	a := newVLLM(Config{BaseURL: "http://vllm:8000", ModelID: "llama"})

	req := userReq("Hi")
	req.User = "abuse-id"

	up, err := a.BuildRequest(req, false)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	if strings.Contains(string(up.Body), "abuse-id") {
		t.Error("user field should be filtered for vllm")
	}
	if req.User != "abuse-id" {
		t.Error("input request must not be mutated")
	}
}

func TestAzure_BuildRequest(t *testing.T) {
	a, err := newAzure(Config{
		BaseURL:         "https://myres.openai.azure.com",
		Credential:      "azure-key",
		AzureDeployment: "gpt4-prod",
		AzureAPIVersion: "2024-02-01",
	})
	if err != nil {
		t.Fatalf("newAzure failed: %v", err)
	}

	up, err := a.BuildRequest(userReq("Hi"), true)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}

	wantURL := "https://myres.openai.azure.com/openai/deployments/gpt4-prod/chat/completions?api-version=2024-02-01"
	if up.URL != wantURL {
		t.Errorf("URL = %q, want %q", up.URL, wantURL)
	}
	if got := up.Header.Get("api-key"); got != "azure-key" {
		t.Errorf("api-key header = %q", got)
	}
	if up.Header.Get("Authorization") != "" {
		t.Error("azure must not send a bearer header")
	}
	if strings.Contains(string(up.Body), `"model"`) {
		t.Error("model field should be dropped; the deployment selects it")
	}
	if !strings.Contains(string(up.Body), `"stream":true`) {
		t.Error("stream flag not applied")
	}
}

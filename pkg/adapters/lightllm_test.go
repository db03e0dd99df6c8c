package adapters

import (
	"encoding/json"
	"strings"
	"testing"

	"nexusgate/pkg/proxy/types"
)

func TestBuildPrompt(t *testing.T) {
	messages := []types.Message{
		{Role: types.RoleSystem, Content: "You are helpful."},
		{Role: types.RoleUser, Content: "Hi"},
		{Role: types.RoleAssistant, Content: "Hello!"},
		{Role: types.RoleTool, ToolCallID: "c1", Content: "dropped"},
		{Role: types.RoleUser, Content: "Bye"},
	}

	got := BuildPrompt(messages)
	want := "<|system|>\nYou are helpful.\n" +
		"<|user|>\nHi\n" +
		"<|assistant|>\nHello!\n" +
		"<|user|>\nBye\n" +
		"<|assistant|>\n"

	if got != want {
		t.Errorf("prompt mismatch:\ngot:  %q\nwant: %q", got, want)
	}
	if strings.Contains(got, "dropped") {
		t.Error("tool message content leaked into the prompt")
	}
}

func TestLightLLM_BuildRequest(t *testing.T) {
	a := newLightLLM(Config{BaseURL: "http://u:8000", ModelID: "llama"})

	temp := 0.7
	maxTokens := 64
	req := userReq("Hi")
	req.Temperature = &temp
	req.MaxTokens = &maxTokens
	req.Stop = &types.StopSequences{Sequences: []string{"END"}}

	up, err := a.BuildRequest(req, false)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	if up.URL != "http://u:8000/generate" {
		t.Errorf("unexpected URL %q", up.URL)
	}

	var payload lightllmRequest
	if err := json.Unmarshal(up.Body, &payload); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if payload.Parameters.MaxNewTokens != 64 {
		t.Errorf("max_tokens not mapped to max_new_tokens: %+v", payload.Parameters)
	}
	if payload.Parameters.Temperature == nil || *payload.Parameters.Temperature != 0.7 {
		t.Errorf("temperature not mapped: %+v", payload.Parameters)
	}
	if len(payload.Parameters.StopSequences) != 1 || payload.Parameters.StopSequences[0] != "END" {
		t.Errorf("stop not mapped: %+v", payload.Parameters)
	}
	if !strings.HasPrefix(payload.Inputs, "<|user|>\nHi") {
		t.Errorf("unexpected prompt: %q", payload.Inputs)
	}

	up, err = a.BuildRequest(req, true)
	if err != nil {
		t.Fatalf("BuildRequest(stream) failed: %v", err)
	}
	if up.URL != "http://u:8000/generate_stream" || !up.Streaming {
		t.Errorf("streaming request not marked: url=%q streaming=%v", up.URL, up.Streaming)
	}
}

func TestLightLLM_ParseResponse(t *testing.T) {
	a := newLightLLM(Config{BaseURL: "http://u:8000", ModelID: "llama"})

	resp, err := a.ParseResponse([]byte(`{"generated_text":"Hello"}`))
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}

	if resp.Object != types.ObjectChatCompletion {
		t.Errorf("object = %q", resp.Object)
	}
	if !strings.HasPrefix(resp.ID, "chatcmpl-") {
		t.Errorf("id not synthesized: %q", resp.ID)
	}
	if resp.Created == 0 {
		t.Error("created not set")
	}
	if len(resp.Choices) != 1 || resp.Choices[0].Message.Content != "Hello" {
		t.Errorf("unexpected choices: %+v", resp.Choices)
	}
	if resp.Choices[0].FinishReason != types.FinishReasonStop {
		t.Errorf("finish_reason = %q", resp.Choices[0].FinishReason)
	}
	if resp.Model != "llama" {
		t.Errorf("model = %q", resp.Model)
	}
}

func TestLightLLM_ParseResponse_Malformed(t *testing.T) {
	a := newLightLLM(Config{ModelID: "llama"})
	_, err := a.ParseResponse([]byte(`not json`))

	ge := types.AsError(err)
	if ge.Kind != types.KindMalformedUpstream {
		t.Errorf("expected malformed_upstream, got %v", err)
	}
}

func TestLightLLM_ParseStreamChunk(t *testing.T) {
	a := newLightLLM(Config{ModelID: "llama"})

	chunks, terminal, err := a.ParseStreamChunk([]byte(`{"token":{"text":"Hel"},"finished":false}`))
	if err != nil || terminal {
		t.Fatalf("unexpected: chunks=%v terminal=%v err=%v", chunks, terminal, err)
	}
	if len(chunks) != 1 || chunks[0].Choices[0].Delta.Content != "Hel" {
		t.Errorf("unexpected chunks: %+v", chunks)
	}

	chunks, terminal, err = a.ParseStreamChunk([]byte(`{"token":{"text":"lo"},"finished":true}`))
	if err != nil || !terminal {
		t.Fatalf("expected terminal record, got terminal=%v err=%v", terminal, err)
	}
	if len(chunks) != 1 || chunks[0].Choices[0].FinishReason != types.FinishReasonStop {
		t.Errorf("final chunk missing finish_reason: %+v", chunks)
	}

	// Blank keep-alive lines produce nothing.
	chunks, terminal, err = a.ParseStreamChunk([]byte("  \n"))
	if err != nil || terminal || len(chunks) != 0 {
		t.Errorf("blank line should be ignored: %v %v %v", chunks, terminal, err)
	}
}

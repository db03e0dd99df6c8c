package streaming

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"nexusgate/pkg/adapters"
	"nexusgate/pkg/proxy/types"
)

// openaiPassthrough is the slice of adapter behavior the pipeline needs:
// an SSE-framed backend speaking the OpenAI chunk schema.
func openaiPassthrough(t *testing.T) adapters.Adapter {
	t.Helper()
	a, err := adapters.New(adapters.Config{Kind: adapters.KindOpenAI, BaseURL: "https://api.openai.com/v1"})
	if err != nil {
		t.Fatalf("adapter: %v", err)
	}
	return a
}

func lightllmAdapter(t *testing.T) adapters.Adapter {
	t.Helper()
	a, err := adapters.New(adapters.Config{Kind: adapters.KindLightLLM, BaseURL: "http://u:8000", ModelID: "llama"})
	if err != nil {
		t.Fatalf("adapter: %v", err)
	}
	return a
}

func sseEvents(t *testing.T, body string) []string {
	t.Helper()
	var events []string
	for _, block := range strings.Split(body, "\n\n") {
		if strings.HasPrefix(block, "data: ") {
			events = append(events, strings.TrimPrefix(block, "data: "))
		}
	}
	return events
}

func TestPipeline_NativeSSE(t *testing.T) {
	upstream := "data: {\"id\":\"chatcmpl-9\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"role\":\"assistant\",\"content\":\"Hel\"}}]}\n\n" +
		"data: {\"id\":\"chatcmpl-9\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"lo\"},\"finish_reason\":\"stop\"}]}\n\n" +
		"data: [DONE]\n\n"

	rec := httptest.NewRecorder()
	pipeline := NewPipeline(openaiPassthrough(t))

	var ttfb time.Duration
	pipeline.OnFirstChunk = func(d time.Duration) { ttfb = d }

	err := pipeline.Run(context.Background(), io.NopCloser(strings.NewReader(upstream)), NewWriter(rec))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("content-type = %q", got)
	}

	events := sseEvents(t, rec.Body.String())
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %v", events)
	}
	if events[2] != "[DONE]" {
		t.Errorf("missing terminal sentinel: %v", events)
	}
	if !strings.Contains(events[0], `"Hel"`) || !strings.Contains(events[1], `"lo"`) {
		t.Errorf("chunk order or content wrong: %v", events)
	}
	if strings.Count(rec.Body.String(), "data: [DONE]") != 1 {
		t.Error("stream must carry exactly one [DONE]")
	}
	if ttfb <= 0 {
		t.Error("time-to-first-byte not observed")
	}
}

func TestPipeline_NDJSON(t *testing.T) {
	upstream := "{\"token\":{\"text\":\"Hel\"},\"finished\":false}\n" +
		"{\"token\":{\"text\":\"lo\"},\"finished\":true}\n"

	rec := httptest.NewRecorder()
	err := NewPipeline(lightllmAdapter(t)).Run(context.Background(),
		io.NopCloser(strings.NewReader(upstream)), NewWriter(rec))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	events := sseEvents(t, rec.Body.String())
	if len(events) != 3 || events[2] != "[DONE]" {
		t.Fatalf("expected 2 chunks + [DONE], got %v", events)
	}

	// Per-record synthesized ids must be normalized to one stream id.
	id := func(event string) string {
		start := strings.Index(event, `"id":"`) + len(`"id":"`)
		return event[start : start+strings.Index(event[start:], `"`)]
	}
	if id(events[0]) != id(events[1]) {
		t.Errorf("chunk ids differ across the stream: %v vs %v", id(events[0]), id(events[1]))
	}
}

func TestPipeline_MidStreamErrorEndsWithDone(t *testing.T) {
	upstream := "data: {\"id\":\"c\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Hi\"}}]}\n\n" +
		"data: this is not json\n\n"

	rec := httptest.NewRecorder()
	err := NewPipeline(openaiPassthrough(t)).Run(context.Background(),
		io.NopCloser(strings.NewReader(upstream)), NewWriter(rec))
	if err == nil {
		t.Fatal("expected stream error")
	}

	body := rec.Body.String()
	if !strings.Contains(body, `"type":"malformed_upstream"`) {
		t.Errorf("error event missing: %s", body)
	}
	if !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Errorf("stream must still terminate with [DONE]: %s", body)
	}
	if strings.Count(body, "data: [DONE]") != 1 {
		t.Error("exactly one [DONE] expected")
	}
}

// blockingBody blocks reads until closed, simulating a stalled upstream.
type blockingBody struct {
	closeOnce sync.Once
	closed    chan struct{}
}

func newBlockingBody() *blockingBody {
	return &blockingBody{closed: make(chan struct{})}
}

func (b *blockingBody) Read(p []byte) (int, error) {
	<-b.closed
	return 0, io.EOF
}

func (b *blockingBody) Close() error {
	b.closeOnce.Do(func() { close(b.closed) })
	return nil
}

func TestPipeline_CancelAbortsUpstreamRead(t *testing.T) {
	body := newBlockingBody()
	rec := httptest.NewRecorder()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- NewPipeline(openaiPassthrough(t)).Run(ctx, body, NewWriter(rec))
	}()

	cancel()

	select {
	case err := <-done:
		if types.AsError(err).Kind != types.KindCanceled {
			t.Errorf("expected canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not abort after cancellation")
	}

	select {
	case <-body.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("upstream body was not closed on cancellation")
	}
}

func TestSynthesize_SingleChunkThenDone(t *testing.T) {
	resp := &types.ChatCompletionResponse{
		ID:      "chatcmpl-1",
		Object:  types.ObjectChatCompletion,
		Created: 1700000000,
		Model:   "llama",
		Choices: []types.Choice{{
			Index:        0,
			Message:      types.Message{Role: types.RoleAssistant, Content: "Hello"},
			FinishReason: types.FinishReasonStop,
		}},
		Usage: types.Usage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2},
	}

	rec := httptest.NewRecorder()
	if err := Synthesize(resp, NewWriter(rec)); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	events := sseEvents(t, rec.Body.String())
	if len(events) != 2 {
		t.Fatalf("expected exactly 2 events, got %v", events)
	}
	if !strings.Contains(events[0], `"content":"Hello"`) {
		t.Errorf("chunk missing content: %s", events[0])
	}
	if !strings.Contains(events[0], `"finish_reason":"stop"`) {
		t.Errorf("chunk missing finish_reason: %s", events[0])
	}
	if !strings.Contains(events[0], `"usage"`) {
		t.Errorf("final chunk missing usage: %s", events[0])
	}
	if events[1] != "[DONE]" {
		t.Errorf("missing sentinel: %v", events)
	}
}

func TestSynthesizeError(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := SynthesizeError(types.NewError(types.KindServerError, "upstream exploded"), NewWriter(rec)); err != nil {
		t.Fatalf("SynthesizeError failed: %v", err)
	}

	body := rec.Body.String()
	if !strings.Contains(body, `"type":"server_error"`) || !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Errorf("unexpected stream: %s", body)
	}
}

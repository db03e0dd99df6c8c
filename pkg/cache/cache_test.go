package cache

import (
	"testing"
	"time"

	"nexusgate/pkg/proxy/types"
)

func testCache(maxBytes int64, ttl time.Duration) (*Cache, *time.Time) {
	now := time.Unix(1700000000, 0)
	c := New(Config{MaxBytes: maxBytes, TTL: ttl})
	c.now = func() time.Time { return now }
	return c, &now
}

func TestCache_PutGet(t *testing.T) {
	c, _ := testCache(1024, time.Hour)

	c.Put("fp1", []byte("response"))
	got, ok := c.Get("fp1")
	if !ok || string(got) != "response" {
		t.Fatalf("Get = %q, %v", got, ok)
	}

	if c.HitCount("fp1") != 1 {
		t.Errorf("hit count = %d, want 1", c.HitCount("fp1"))
	}

	stats := c.Snapshot()
	if stats.Hits != 1 || stats.Entries != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c, now := testCache(1024, time.Minute)

	c.Put("fp1", []byte("response"))
	*now = now.Add(2 * time.Minute)

	if _, ok := c.Get("fp1"); ok {
		t.Error("expired entry must read as absent")
	}
	if c.Snapshot().Entries != 0 {
		t.Error("expired entry must be removed on access")
	}
	if c.Snapshot().Misses != 1 {
		t.Errorf("expiry must count as a miss: %+v", c.Snapshot())
	}
}

func TestCache_LRUEvictionByBytes(t *testing.T) {
	c, _ := testCache(10, time.Hour)

	c.Put("a", []byte("aaaa")) // 4 bytes
	c.Put("b", []byte("bbbb")) // 8 total
	c.Get("a")                 // touch a so b is the LRU
	c.Put("c", []byte("cccc")) // 12 > 10: evict b

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry should survive")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("new entry should be present")
	}
	if got := c.Snapshot().Bytes; got > 10 {
		t.Errorf("byte budget exceeded: %d", got)
	}
}

func TestCache_OversizeBodyNotStored(t *testing.T) {
	c, _ := testCache(4, time.Hour)
	c.Put("huge", []byte("too big for the budget"))

	if c.Snapshot().Entries != 0 {
		t.Error("oversize body must not be stored")
	}
}

func TestCache_Sweep(t *testing.T) {
	c, now := testCache(1024, time.Minute)

	c.Put("a", []byte("x"))
	c.Put("b", []byte("y"))
	*now = now.Add(2 * time.Minute)
	c.Put("c", []byte("z"))

	if removed := c.Sweep(); removed != 2 {
		t.Errorf("sweep removed %d entries, want 2", removed)
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("fresh entry must survive the sweep")
	}
}

func TestComputeFingerprint_Stability(t *testing.T) {
	req := func() *types.ChatCompletionRequest {
		temp := 0.0
		return &types.ChatCompletionRequest{
			Model:       "llama",
			Temperature: &temp,
			Messages:    []types.Message{{Role: types.RoleUser, Content: "Hi"}},
		}
	}

	a := ComputeFingerprint("lightllm", "llama", req())
	b := ComputeFingerprint("lightllm", "llama", req())
	if a != b {
		t.Error("identical requests must share a fingerprint")
	}
}

func TestComputeFingerprint_Discriminates(t *testing.T) {
	base := &types.ChatCompletionRequest{
		Messages: []types.Message{{Role: types.RoleUser, Content: "Hi"}},
	}
	fp := ComputeFingerprint("lightllm", "llama", base)

	tests := []struct {
		name   string
		mutate func(r *types.ChatCompletionRequest)
	}{
		{"different content", func(r *types.ChatCompletionRequest) { r.Messages[0].Content = "Hi!" }},
		{"different role", func(r *types.ChatCompletionRequest) { r.Messages[0].Role = types.RoleSystem }},
		{"temperature set", func(r *types.ChatCompletionRequest) { v := 0.5; r.Temperature = &v }},
		{"top_p set", func(r *types.ChatCompletionRequest) { v := 0.9; r.TopP = &v }},
		{"n set", func(r *types.ChatCompletionRequest) { v := 3; r.N = &v }},
		{"stop set", func(r *types.ChatCompletionRequest) {
			r.Stop = &types.StopSequences{Sequences: []string{"END"}}
		}},
		{"response_format set", func(r *types.ChatCompletionRequest) {
			r.ResponseFormat = []byte(`{"type":"json_object"}`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := &types.ChatCompletionRequest{
				Messages: []types.Message{{Role: types.RoleUser, Content: "Hi"}},
			}
			tt.mutate(other)
			if ComputeFingerprint("lightllm", "llama", other) == fp {
				t.Error("fingerprint failed to discriminate")
			}
		})
	}

	if ComputeFingerprint("vllm", "llama", base) == fp {
		t.Error("adapter must participate in the fingerprint")
	}
	if ComputeFingerprint("lightllm", "llama2", base) == fp {
		t.Error("model must participate in the fingerprint")
	}
}

// Field boundaries must not collide by concatenation.
func TestComputeFingerprint_NoConcatenationCollision(t *testing.T) {
	a := &types.ChatCompletionRequest{
		Messages: []types.Message{{Role: types.RoleUser, Content: "ab"}},
	}
	b := &types.ChatCompletionRequest{
		Messages: []types.Message{{Role: types.RoleUser, Content: "a", Name: "b"}},
	}
	if ComputeFingerprint("x", "m", a) == ComputeFingerprint("x", "m", b) {
		t.Error("length prefixing failed: adjacent fields collided")
	}
}

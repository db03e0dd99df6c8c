package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"nexusgate/pkg/adapters"
	"nexusgate/pkg/cache"
	"nexusgate/pkg/config"
	"nexusgate/pkg/proxy"
	"nexusgate/pkg/proxy/middleware"
	"nexusgate/pkg/proxy/types"
	"nexusgate/pkg/ratelimit"
	"nexusgate/pkg/security/auth"
	"nexusgate/pkg/streaming"
	"nexusgate/pkg/telemetry/metrics"
	"nexusgate/pkg/tokens"
	"nexusgate/pkg/transport"
)

// ChatHandler serves POST /v1/chat/completions.
type ChatHandler struct {
	cfg      *config.Config
	adapter  adapters.Adapter
	sender   *transport.Sender
	limiter  *ratelimit.Limiter
	identity *auth.Extractor
	cache    *cache.Cache
	flights  *cache.Group
	metrics  *metrics.Collector
}

// Deps carries the shared components the handler orchestrates. Limiter
// and Cache may be nil when the corresponding feature is disabled.
type Deps struct {
	Config   *config.Config
	Adapter  adapters.Adapter
	Sender   *transport.Sender
	Limiter  *ratelimit.Limiter
	Identity *auth.Extractor
	Cache    *cache.Cache
	Metrics  *metrics.Collector
}

// NewChatHandler wires the request-path orchestrator.
func NewChatHandler(deps Deps) *ChatHandler {
	return &ChatHandler{
		cfg:      deps.Config,
		adapter:  deps.Adapter,
		sender:   deps.Sender,
		limiter:  deps.Limiter,
		identity: deps.Identity,
		cache:    deps.Cache,
		flights:  cache.NewGroup(),
		metrics:  deps.Metrics,
	}
}

// ServeHTTP implements http.Handler.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := middleware.GetRequestID(r.Context())

	if r.Method != http.MethodPost {
		proxy.WriteError(w, &types.Error{
			Kind:    types.KindBadRequest,
			Code:    "method_not_allowed",
			Message: "use POST",
		})
		return
	}

	// Received: parse and validate.
	chatReq, err := proxy.ParseChatCompletionRequest(r, h.cfg.Server.MaxBodyBytes)
	if err != nil {
		slog.InfoContext(r.Context(), "request rejected",
			"request_id", requestID,
			"error", err,
		)
		proxy.WriteError(w, err)
		h.record(metrics.OutcomeFailed, start)
		return
	}

	// Admitted: local rate limiting.
	if h.limiter != nil {
		identity := h.identity.Identity(r)
		if decision := h.limiter.Check(identity, 1); !decision.Allowed {
			h.metrics.RecordRateLimited()
			slog.InfoContext(r.Context(), "request rate limited",
				"request_id", requestID,
				"identity", identity,
				"retry_after", decision.RetryAfter,
			)
			denial := &proxy.RateLimitedError{Wait: decision.RetryAfter}
			proxy.WriteError(w, denial.AsGatewayError())
			h.record(metrics.OutcomeFailed, start)
			return
		}
	}

	// Planned: the ingress deadline bounds everything downstream.
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.Backend.RequestTimeout)
	defer cancel()

	idempotencyKey := r.Header.Get(transport.IdempotencyKeyHeader)
	wantStream := chatReq.Stream && h.cfg.Streaming.IsEnabled()

	slog.InfoContext(ctx, "processing chat completion",
		"request_id", requestID,
		"adapter", h.adapter.Name(),
		"model", chatReq.EffectiveModel(h.cfg.Backend.ModelID),
		"messages", len(chatReq.Messages),
		"stream", wantStream,
		"n", chatReq.ChoiceCount(),
	)

	if wantStream {
		h.serveStream(ctx, w, chatReq, idempotencyKey, start)
		return
	}
	h.serveUnary(ctx, w, chatReq, idempotencyKey, start)
}

// serveUnary dispatches through the cache when eligible and replies with
// one JSON body.
func (h *ChatHandler) serveUnary(ctx context.Context, w http.ResponseWriter, chatReq *types.ChatCompletionRequest, idempotencyKey string, start time.Time) {
	deterministic := chatReq.Temperature == nil || *chatReq.Temperature == 0
	coalesce := h.cache != nil && (deterministic || h.cfg.Cache.CacheNondeterministic)
	store := h.cache != nil && deterministic

	var body []byte
	var err error

	if coalesce {
		fingerprint := cache.ComputeFingerprint(
			h.adapter.Name(),
			chatReq.EffectiveModel(h.cfg.Backend.ModelID),
			chatReq,
		)

		if cached, ok := h.cache.Get(fingerprint); ok {
			h.metrics.RecordCacheHit()
			h.reply(w, cached, start)
			return
		}
		h.metrics.RecordCacheMiss()

		// The owner stores before waiters wake, so a waiter observes
		// the entry it shared.
		build := func(ctx context.Context) ([]byte, error) {
			resp, buildErr := h.completeWithFanOut(ctx, chatReq, idempotencyKey)
			if buildErr != nil {
				return nil, buildErr
			}
			encoded, buildErr := json.Marshal(resp)
			if buildErr != nil {
				return nil, buildErr
			}
			if store {
				h.cache.Put(fingerprint, encoded)
			}
			return encoded, nil
		}

		var shared bool
		body, shared, err = h.flights.Do(ctx, fingerprint, build)
		if err == nil && shared {
			h.metrics.RecordCacheHit()
			h.cache.Touch(fingerprint)
		}
	} else {
		resp, completeErr := h.completeWithFanOut(ctx, chatReq, idempotencyKey)
		if completeErr != nil {
			err = completeErr
		} else {
			body, err = json.Marshal(resp)
		}
	}

	if err != nil {
		proxy.WriteError(w, err)
		h.record(outcomeOf(err), start)
		return
	}
	h.reply(w, body, start)
}

// reply writes a completed unary body.
func (h *ChatHandler) reply(w http.ResponseWriter, body []byte, start time.Time) {
	h.metrics.RecordResponseBytes(h.adapter.Name(), len(body))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
	h.record(metrics.OutcomeCompleted, start)
}

// serveStream answers a streaming request, natively when the adapter can,
// synthetically otherwise.
func (h *ChatHandler) serveStream(ctx context.Context, w http.ResponseWriter, chatReq *types.ChatCompletionRequest, idempotencyKey string, start time.Time) {
	writer := streaming.NewWriter(w)

	// Backends without native streaming, and fan-out requests, answer
	// through one or more unary calls re-framed as a synthetic stream.
	needFanOut := chatReq.ChoiceCount() > 1 && !h.adapter.SupportsMultipleChoices()
	if !h.adapter.SupportsStreaming() || needFanOut {
		resp, err := h.completeWithFanOut(ctx, chatReq, idempotencyKey)
		if err != nil {
			h.failStream(w, writer, err)
			h.record(outcomeOf(err), start)
			return
		}
		if err := streaming.Synthesize(resp, writer); err != nil {
			h.record(metrics.OutcomeCanceled, start)
			return
		}
		h.record(metrics.OutcomeCompleted, start)
		return
	}

	upstreamReq, err := h.adapter.BuildRequest(chatReq, true)
	if err != nil {
		h.failStream(w, writer, err)
		h.record(outcomeOf(err), start)
		return
	}
	upstreamReq.IdempotencyKey = idempotencyKey

	upstreamStart := time.Now()
	resp, err := h.sender.Send(ctx, upstreamReq)
	if err != nil {
		h.failStream(w, writer, err)
		h.record(outcomeOf(err), start)
		return
	}
	h.metrics.RecordUpstream(h.adapter.Name(), time.Since(upstreamStart))

	pipeline := streaming.NewPipeline(h.adapter)
	pipeline.OnFirstChunk = func(elapsed time.Duration) {
		h.metrics.RecordStreamFirstByte(h.adapter.Name(), elapsed)
	}

	if err := pipeline.Run(ctx, resp.Stream, writer); err != nil {
		h.record(outcomeOf(err), start)
		return
	}
	h.record(metrics.OutcomeCompleted, start)
}

// failStream reports a pre-stream failure as a JSON error, or in-band when
// the SSE headers are already committed.
func (h *ChatHandler) failStream(w http.ResponseWriter, writer *streaming.Writer, err error) {
	if writer.Started() {
		streaming.SynthesizeError(types.AsError(err), writer)
		return
	}
	proxy.WriteError(w, err)
}

// completeWithFanOut produces one response, issuing sequential upstream
// calls when the caller asked for more choices than the backend can
// multiplex. Choice indices follow dispatch order; usage is summed.
func (h *ChatHandler) completeWithFanOut(ctx context.Context, chatReq *types.ChatCompletionRequest, idempotencyKey string) (*types.ChatCompletionResponse, error) {
	n := chatReq.ChoiceCount()
	if n == 1 || h.adapter.SupportsMultipleChoices() {
		return h.complete(ctx, chatReq, idempotencyKey)
	}

	single := *chatReq
	one := 1
	single.N = &one

	var merged *types.ChatCompletionResponse
	for i := 0; i < n; i++ {
		resp, err := h.complete(ctx, &single, fanOutKey(idempotencyKey, i))
		if err != nil {
			return nil, err
		}

		if merged == nil {
			merged = resp
			merged.Choices = merged.Choices[:1]
			merged.Choices[0].Index = 0
			continue
		}

		choice := resp.Choices[0]
		choice.Index = i
		merged.Choices = append(merged.Choices, choice)
		merged.Usage.PromptTokens += resp.Usage.PromptTokens
		merged.Usage.CompletionTokens += resp.Usage.CompletionTokens
		merged.Usage.TotalTokens += resp.Usage.TotalTokens
	}
	return merged, nil
}

// fanOutKey derives a distinct idempotency key per fan-out leg so the legs
// do not deduplicate against each other.
func fanOutKey(key string, index int) string {
	if key == "" || index == 0 {
		return key
	}
	return key + "-" + strconv.Itoa(index)
}

// complete performs one upstream completion.
func (h *ChatHandler) complete(ctx context.Context, chatReq *types.ChatCompletionRequest, idempotencyKey string) (*types.ChatCompletionResponse, error) {
	// Direct mode bypasses the transport entirely.
	if invoker, ok := h.adapter.(adapters.Invoker); ok {
		resp, err := invoker.Invoke(ctx, chatReq)
		if err != nil {
			return nil, err
		}
		tokens.FillUsage(resp, chatReq.Messages)
		return resp, nil
	}

	upstreamReq, err := h.adapter.BuildRequest(chatReq, false)
	if err != nil {
		return nil, err
	}
	upstreamReq.IdempotencyKey = idempotencyKey

	upstreamStart := time.Now()
	upstreamResp, err := h.sender.Send(ctx, upstreamReq)
	if err != nil {
		return nil, err
	}
	h.metrics.RecordUpstream(h.adapter.Name(), time.Since(upstreamStart))

	resp, err := h.adapter.ParseResponse(upstreamResp.Body)
	if err != nil {
		return nil, err
	}

	if resp.Model == "" {
		resp.Model = chatReq.EffectiveModel(h.cfg.Backend.ModelID)
	}
	tokens.FillUsage(resp, chatReq.Messages)
	return resp, nil
}

// record closes the request's metrics.
func (h *ChatHandler) record(outcome string, start time.Time) {
	h.metrics.RecordRequest(h.adapter.Name(), outcome, time.Since(start))
}

// outcomeOf maps a terminal error to its metrics outcome.
func outcomeOf(err error) string {
	var ge *types.Error
	if errors.As(err, &ge) && ge.Kind == types.KindCanceled {
		return metrics.OutcomeCanceled
	}
	return metrics.OutcomeFailed
}

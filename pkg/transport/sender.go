package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"

	"nexusgate/pkg/proxy/types"
)

// maxUnaryResponseBytes bounds how much of a unary upstream body is read
// into memory.
const maxUnaryResponseBytes = 16 << 20

// maxErrorBodyBytes bounds how much of an upstream error body is read for
// classification.
const maxErrorBodyBytes = 64 << 10

// Sender executes upstream requests against the shared pooled client under
// a retry policy. A single Sender is created at startup and shared by all
// requests.
type Sender struct {
	client    *http.Client
	policy    RetryPolicy
	userAgent string

	// OnRetry, when set, is invoked before each retry sleep with the
	// classification of the failed attempt.
	OnRetry func(reason string)

	// sleep and rng are swappable for tests.
	sleep func(ctx context.Context, d time.Duration) error
	rng   func(n int64) int64
}

// NewSender creates a Sender over the shared client.
func NewSender(client *http.Client, policy RetryPolicy, userAgent string) *Sender {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Sender{
		client:    client,
		policy:    policy,
		userAgent: userAgent,
		sleep:     sleepContext,
		rng:       rand.Int63n,
	}
}

// Send executes the request with at most policy.MaxAttempts attempts, each
// bounded by the remaining context deadline. A nil error means a 2xx
// upstream response. The returned error is always a *types.Error.
func (s *Sender) Send(ctx context.Context, req *UpstreamRequest) (*UpstreamResponse, error) {
	if req.IdempotencyKey == "" {
		// Synthesize a key so retried attempts are deduplicatable by
		// upstreams that honor it.
		req.IdempotencyKey = uuid.NewString()
	}

	var lastErr *types.Error

	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, contextError(err)
		}
		if remaining, ok := remainingTime(ctx); ok && remaining <= 0 {
			return nil, &types.Error{Kind: types.KindTimeout, Message: "deadline exceeded before attempt"}
		}

		resp, attemptErr := s.attempt(ctx, req, attempt)
		if attemptErr == nil {
			return resp, nil
		}
		lastErr = attemptErr

		if !attemptErr.Retriable() || attempt == s.policy.MaxAttempts {
			break
		}

		delay, ok := s.nextDelay(ctx, attempt, attemptErr)
		if !ok {
			// The required sleep does not fit the deadline.
			break
		}

		if s.OnRetry != nil {
			s.OnRetry(string(attemptErr.Kind))
		}
		slog.Debug("retrying upstream request",
			"attempt", attempt,
			"max_attempts", s.policy.MaxAttempts,
			"reason", attemptErr.Kind,
			"backoff", delay,
		)

		if err := s.sleep(ctx, delay); err != nil {
			return nil, contextError(err)
		}
	}

	return nil, lastErr
}

// attempt issues a single upstream call.
func (s *Sender) attempt(ctx context.Context, req *UpstreamRequest, attempt int) (*UpstreamResponse, *types.Error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, &types.Error{Kind: types.KindInternal, Message: "failed to build upstream request", Cause: err}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")
	httpReq.Header.Set("User-Agent", s.userAgent)
	httpReq.Header.Set(IdempotencyKeyHeader, req.IdempotencyKey)
	for key, values := range req.Header {
		httpReq.Header.Del(key)
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, contextError(ctxErr)
		}
		return nil, &types.Error{Kind: types.KindTransport, Message: "upstream connection failed", Cause: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if req.Streaming {
			return &UpstreamResponse{
				Status:   resp.StatusCode,
				Header:   resp.Header,
				Stream:   resp.Body,
				Attempts: attempt,
			}, nil
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxUnaryResponseBytes))
		resp.Body.Close()
		if readErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, contextError(ctxErr)
			}
			return nil, &types.Error{Kind: types.KindTransport, Message: "failed to read upstream response", Cause: readErr}
		}
		return &UpstreamResponse{
			Status:   resp.StatusCode,
			Header:   resp.Header,
			Body:     body,
			Attempts: attempt,
		}, nil
	}

	errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	resp.Body.Close()

	classified := classifyStatus(resp.StatusCode, errBody)
	if classified.Kind == types.KindRateLimited {
		classified.Cause = &retryAfterHint{delay: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}
	return nil, classified
}

// nextDelay computes the sleep before the next attempt. For 429s carrying a
// Retry-After hint the hint replaces the exponential delay. The second
// return value is false when the sleep cannot end before the deadline.
func (s *Sender) nextDelay(ctx context.Context, attempt int, attemptErr *types.Error) (time.Duration, bool) {
	var delay time.Duration

	var hint *retryAfterHint
	if errors.As(attemptErr.Cause, &hint) && hint.delay > 0 {
		delay = hint.delay
	} else if attemptErr.Kind == types.KindRateLimited {
		// Rate limited with no usable hint: give up rather than guess.
		return 0, false
	} else {
		delay = backoffDelay(s.policy, attempt)
		if s.policy.Jitter == JitterFull && delay > 0 {
			delay = time.Duration(s.rng(int64(delay) + 1))
		}
	}

	if remaining, ok := remainingTime(ctx); ok && delay >= remaining {
		return 0, false
	}
	return delay, true
}

// backoffDelay is the exponential schedule min(maxDelay, base * 2^(n-1)).
func backoffDelay(policy RetryPolicy, attempt int) time.Duration {
	delay := policy.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= policy.MaxDelay {
			return policy.MaxDelay
		}
	}
	if delay > policy.MaxDelay {
		return policy.MaxDelay
	}
	return delay
}

// remainingTime reports the time left until the context deadline.
func remainingTime(ctx context.Context) (time.Duration, bool) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0, false
	}
	return time.Until(deadline), true
}

// contextError maps a context error to the taxonomy.
func contextError(err error) *types.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &types.Error{Kind: types.KindTimeout, Message: "deadline exceeded", Cause: err}
	}
	return &types.Error{Kind: types.KindCanceled, Message: "request canceled", Cause: err}
}

// sleepContext sleeps for d or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryAfterHint carries an upstream Retry-After value through the error
// chain to the backoff computation.
type retryAfterHint struct {
	delay time.Duration
}

func (h *retryAfterHint) Error() string {
	return fmt.Sprintf("retry after %s", h.delay)
}

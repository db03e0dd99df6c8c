package transport

import (
	"io"
	"net/http"
	"time"
)

// IdempotencyKeyHeader is forwarded on every attempt of a request so
// upstreams that honor it can deduplicate retried work.
const IdempotencyKeyHeader = "Idempotency-Key"

// UpstreamRequest is a fully built request for one backend call, produced
// by an adapter.
type UpstreamRequest struct {
	// Method is the HTTP method, normally POST.
	Method string

	// URL is the absolute upstream URL.
	URL string

	// Header carries adapter-specific headers (auth, api-version). The
	// sender adds the shared defaults and the idempotency key.
	Header http.Header

	// Body is the serialized payload.
	Body []byte

	// Streaming marks a request whose response body is consumed
	// incrementally. On success the body is returned unread; retries
	// stop once a successful response has begun.
	Streaming bool

	// IdempotencyKey is the caller-supplied key, if any. When empty the
	// sender synthesizes one before the first attempt.
	IdempotencyKey string
}

// UpstreamResponse is the outcome of a successful send.
type UpstreamResponse struct {
	// Status is the upstream HTTP status code (2xx).
	Status int

	// Header is the upstream response header.
	Header http.Header

	// Body is the full response payload for unary requests. Nil when
	// Stream is set.
	Body []byte

	// Stream is the live response body for streaming requests. The
	// caller must close it. Nil for unary requests.
	Stream io.ReadCloser

	// Attempts is the number of attempts issued, including the
	// successful one.
	Attempts int
}

// Jitter selects the backoff jitter mode.
type Jitter string

const (
	// JitterNone sleeps the exact computed delay.
	JitterNone Jitter = "none"
	// JitterFull samples uniformly in [0, delay].
	JitterFull Jitter = "full"
)

// RetryPolicy bounds the sender's retry behavior.
type RetryPolicy struct {
	// MaxAttempts is the total attempt budget, at least 1.
	MaxAttempts int

	// BaseDelay is the first backoff delay.
	BaseDelay time.Duration

	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration

	// Jitter selects the jitter mode.
	Jitter Jitter
}

// DefaultRetryPolicy returns the stock policy: three attempts, 200ms base,
// 10s cap, full jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Jitter:      JitterFull,
	}
}

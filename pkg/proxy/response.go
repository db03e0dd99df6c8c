package proxy

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"nexusgate/pkg/proxy/types"
)

// WriteJSON serializes a payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}

// WriteError emits the stable error envelope with the kind's status code.
// Rate-limited errors carry a Retry-After header when a wait is known.
func WriteError(w http.ResponseWriter, err error) {
	ge := types.AsError(err)

	if ge.Kind == types.KindCanceled {
		// The caller is gone; there is no one to answer.
		return
	}

	if wait := RetryAfterOf(ge); wait > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())))
	}

	if writeErr := WriteJSON(w, ge.HTTPStatus(), ge.Envelope()); writeErr != nil {
		slog.Debug("failed to write error response", "error", writeErr)
	}
}

// retryAfterCarrier is implemented by errors that know how long the
// caller should wait.
type retryAfterCarrier interface {
	RetryAfterDuration() time.Duration
}

// RetryAfterOf extracts a Retry-After wait from an error chain, or zero.
func RetryAfterOf(err error) time.Duration {
	for e := err; e != nil; {
		if carrier, ok := e.(retryAfterCarrier); ok {
			return carrier.RetryAfterDuration()
		}
		unwrapper, ok := e.(interface{ Unwrap() error })
		if !ok {
			return 0
		}
		e = unwrapper.Unwrap()
	}
	return 0
}

// RateLimitedError is a local admission denial carrying its wait.
type RateLimitedError struct {
	Wait time.Duration
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	return "rate limit exceeded"
}

// RetryAfterDuration implements retryAfterCarrier.
func (e *RateLimitedError) RetryAfterDuration() time.Duration {
	return e.Wait
}

// AsGatewayError converts the denial to the wire taxonomy.
func (e *RateLimitedError) AsGatewayError() *types.Error {
	return &types.Error{
		Kind:    types.KindRateLimited,
		Message: "rate limit exceeded; retry later",
		Cause:   e,
	}
}

package types

import (
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"
)

// ErrorKind classifies gateway errors. Kinds are stable across adapters;
// upstream-specific detail travels only in the message.
type ErrorKind string

// Error kinds, from terminal validation failures through retriable
// transport faults.
const (
	KindBadRequest        ErrorKind = "bad_request"
	KindAuth              ErrorKind = "auth"
	KindNotFound          ErrorKind = "not_found"
	KindPayloadTooLarge   ErrorKind = "payload_too_large"
	KindRateLimited       ErrorKind = "rate_limited"
	KindTimeout           ErrorKind = "timeout"
	KindCanceled          ErrorKind = "canceled"
	KindTransport         ErrorKind = "transport"
	KindServerError       ErrorKind = "server_error"
	KindMalformedUpstream ErrorKind = "malformed_upstream"
	KindInternal          ErrorKind = "internal"
)

// maxErrorMessageBytes bounds how much upstream error text is carried into
// the caller-visible envelope.
const maxErrorMessageBytes = 512

// Error is the gateway's error type. It carries the taxonomy kind, an
// optional machine-readable code slug, a human message, and the offending
// request parameter when known.
type Error struct {
	// Kind classifies the error.
	Kind ErrorKind

	// Code is an optional slug refining the kind, e.g.
	// "context_length_exceeded".
	Code string

	// Message is safe for the caller: no credentials, no full upstream
	// URLs, upstream text truncated.
	Message string

	// Param names the request field that caused a validation failure.
	Param string

	// Cause is the wrapped underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Retriable reports whether the resilient sender may retry this error.
func (e *Error) Retriable() bool {
	switch e.Kind {
	case KindTransport, KindServerError:
		return true
	case KindRateLimited:
		// Retriable only when an upstream Retry-After fits the
		// deadline; the sender decides.
		return true
	default:
		return false
	}
}

// HTTPStatus maps the kind to the caller-facing status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindBadRequest:
		switch e.Code {
		case "method_not_allowed":
			return http.StatusMethodNotAllowed
		case "invalid_value":
			return http.StatusUnprocessableEntity
		default:
			return http.StatusBadRequest
		}
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindCanceled:
		// Client went away; 499 is conventional but non-standard, and
		// in practice the response is rarely delivered.
		return 499
	case KindTransport:
		return http.StatusBadGateway
	case KindServerError:
		return http.StatusBadGateway
	case KindMalformedUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewError builds an Error with a truncated message.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: Truncate(message)}
}

// NewValidationError builds a bad_request error naming the offending field.
func NewValidationError(param, message string) *Error {
	return &Error{Kind: KindBadRequest, Code: "invalid_value", Param: param, Message: message}
}

// WrapError builds an Error wrapping a cause.
func WrapError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: Truncate(message), Cause: cause}
}

// AsError extracts an *Error from an error chain, or classifies unknown
// errors as internal.
func AsError(err error) *Error {
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	return &Error{Kind: KindInternal, Message: Truncate(err.Error())}
}

// Truncate bounds a string to the maximum caller-visible message length.
func Truncate(s string) string {
	if len(s) <= maxErrorMessageBytes {
		return s
	}
	n := maxErrorMessageBytes
	// Never cut inside a multibyte sequence: back up while the first
	// dropped byte continues the rune before it.
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// ErrorEnvelope is the caller-facing error body:
// {"error":{"type","code","message","param"}}.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody is the inner error object of the envelope.
type ErrorBody struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

// Envelope converts the error to its wire form.
func (e *Error) Envelope() *ErrorEnvelope {
	code := e.Code
	if code == "" {
		code = string(e.Kind)
	}
	return &ErrorEnvelope{Error: ErrorBody{
		Type:    string(e.Kind),
		Code:    code,
		Message: e.Message,
		Param:   e.Param,
	}}
}

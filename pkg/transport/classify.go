package transport

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"nexusgate/pkg/proxy/types"
)

// classifyStatus maps an upstream status code to an error kind. 2xx is
// handled before classification and never reaches here.
func classifyStatus(status int, body []byte) *types.Error {
	message := types.Truncate(string(body))

	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return &types.Error{Kind: types.KindAuth, Message: message}

	case status == http.StatusNotFound:
		return &types.Error{Kind: types.KindNotFound, Message: message}

	case status == http.StatusRequestEntityTooLarge:
		return &types.Error{Kind: types.KindPayloadTooLarge, Message: message}

	case status == http.StatusTooManyRequests:
		return &types.Error{Kind: types.KindRateLimited, Message: message}

	case status == http.StatusRequestTimeout, status == http.StatusTooEarly:
		// 408 and 425 are the retriable members of the 4xx family.
		return &types.Error{Kind: types.KindTransport, Message: message}

	case status >= 400 && status < 500:
		kind := types.KindBadRequest
		code := ""
		if isContextLengthError(body) {
			code = "context_length_exceeded"
			kind = types.KindPayloadTooLarge
		}
		return &types.Error{Kind: kind, Code: code, Message: message}

	default:
		return &types.Error{Kind: types.KindServerError, Message: message}
	}
}

// isContextLengthError sniffs upstream 400 bodies for the context-window
// error families the major backends emit.
func isContextLengthError(body []byte) bool {
	s := strings.ToLower(string(body))
	return strings.Contains(s, "context_length_exceeded") ||
		strings.Contains(s, "context length") ||
		strings.Contains(s, "maximum context")
}

// parseRetryAfter parses a Retry-After header in either delay-seconds or
// HTTP-date form. Returns 0 when absent or unparseable.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(strings.TrimSpace(header)); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

package proxy

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"nexusgate/pkg/proxy/types"
)

// ParseChatCompletionRequest decodes and validates the request body,
// bounding the accepted size. The returned error is always a
// *types.Error.
func ParseChatCompletionRequest(r *http.Request, maxBodyBytes int64) (*types.ChatCompletionRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, types.WrapError(types.KindBadRequest, "failed to read request body", err)
	}
	if int64(len(body)) > maxBodyBytes {
		return nil, &types.Error{
			Kind:    types.KindPayloadTooLarge,
			Message: "request body exceeds the configured limit",
		}
	}
	if len(body) == 0 {
		return nil, types.NewError(types.KindBadRequest, "request body is empty")
	}

	var req types.ChatCompletionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		var ge *types.Error
		if errors.As(err, &ge) {
			return nil, ge
		}
		return nil, &types.Error{
			Kind:    types.KindBadRequest,
			Code:    "invalid_json",
			Message: "request body is not valid JSON: " + types.Truncate(err.Error()),
		}
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	"nexusgate/pkg/proxy/types"
)

// Recovery converts handler panics into a 500 envelope instead of a
// dropped connection. It sits outermost in the chain.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}

			slog.ErrorContext(r.Context(), "handler panic",
				"request_id", GetRequestID(r.Context()),
				"panic", recovered,
				"stack", string(debug.Stack()),
			)

			envelope := (&types.Error{
				Kind:    types.KindInternal,
				Message: "internal server error",
			}).Envelope()

			// Headers may already be committed for a streaming
			// response; the write then fails harmlessly.
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			if data, err := json.Marshal(envelope); err == nil {
				w.Write(data)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

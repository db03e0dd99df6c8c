package handlers

import (
	"net/http"

	"nexusgate/pkg/proxy"
)

// HealthHandler answers liveness probes. It reports process health only;
// no upstream probe is issued.
type HealthHandler struct{}

// NewHealthHandler builds the /health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	proxy.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package handlers

import (
	"encoding/json"
	"net/http"
)

// healthResponse reports proxy liveness and which model is loaded, if any.
type healthResponse struct {
	Status      string `json:"status"`
	ActiveModel string `json:"active_model,omitempty"`
}

// HealthHandler serves GET /health. It reports the proxy's own liveness, not
// the backend's: the backend is down by design whenever no model is loaded.
type HealthHandler struct {
	switcher ModelSwitcher
}

// NewHealthHandler creates the health endpoint handler.
func NewHealthHandler(switcher ModelSwitcher) *HealthHandler {
	return &HealthHandler{switcher: switcher}
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:      "ok",
		ActiveModel: h.switcher.ActiveModel(),
	})
}

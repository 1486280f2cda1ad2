package handlers

import (
	"encoding/json"
	"net/http"

	"gpuswitch/relay/pkg/proxy/types"
)

// ModelsHandler serves GET /v1/models from the static model registry.
type ModelsHandler struct {
	switcher ModelSwitcher
}

// NewModelsHandler creates the model listing handler.
func NewModelsHandler(switcher ModelSwitcher) *ModelsHandler {
	return &ModelsHandler{switcher: switcher}
}

// ServeHTTP implements http.Handler.
func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		types.WriteError(w, http.StatusMethodNotAllowed, types.MsgMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(types.NewModelList(h.switcher.Models()))
}

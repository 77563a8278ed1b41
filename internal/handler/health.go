package handler

import (
	"encoding/json"
	"net/http"
)

// HealthHandler manages health check endpoints
type HealthHandler struct {
	readyFn func() error
}

// NewHealthHandler creates a health handler
// readyFn reports why the service cannot answer lookups yet; nil means always ready.
func NewHealthHandler(readyFn func() error) *HealthHandler {
	return &HealthHandler{readyFn: readyFn}
}

// Health is the liveness probe endpoint
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready is the readiness probe endpoint
// GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.readyFn != nil {
		if err := h.readyFn(); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

package handler

import (
	"net/http"

	"github.com/chat-analyzer/gateway/internal/app"
)

// BusChecker reports event bus connectivity.
type BusChecker interface {
	IsConnected() bool
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	app *app.App
	bus BusChecker
}

// NewHealthHandler creates a new health handler. bus may be nil when the
// event bus is disabled.
func NewHealthHandler(a *app.App, bus BusChecker) *HealthHandler {
	return &HealthHandler{
		app: a,
		bus: bus,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.app.Session.Initialized() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "session not initialized",
		})
		return
	}

	if h.bus != nil && !h.bus.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "ready",
		"auth_status": string(h.app.Session.Status()),
	})
}

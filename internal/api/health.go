package api

import (
	"net/http"
	"time"

	"github.com/thekoushikdurgas/diary/internal/api/respond"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	health HealthReporter
}

// NewHealthHandler creates a new health handler. A nil reporter is always UP.
func NewHealthHandler(h HealthReporter) *HealthHandler { return &HealthHandler{health: h} }

// CheckHealth handles GET /api/health
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	if h.health == nil || h.health.IsHealthy() {
		respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "UP",
			"message":   "Service is healthy",
			"timestamp": time.Now().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
		"status":    "DOWN",
		"message":   "One or more dependencies unavailable",
		"down":      h.health.Unhealthy(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

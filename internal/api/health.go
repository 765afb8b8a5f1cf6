package api

import (
	"net/http"
	"time"

	respond "github.com/terra-femme/MedJournee/internal/api/respond"
	"github.com/terra-femme/MedJournee/internal/store"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store store.Store
}

func NewHealthHandler(s store.Store) *HealthHandler { return &HealthHandler{store: s} }

// CheckHealth handles GET /api/health.
// Always returns 200; body reports healthy/unhealthy based on backend
// connectivity.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if err := h.store.HealthPing(r.Context()); err != nil {
		status = "unhealthy"
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

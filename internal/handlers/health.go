package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// HealthStatus is the liveness value reported by the health endpoint.
type HealthStatus string

// StatusOK is the only HealthStatus the backend reports.
const StatusOK HealthStatus = "ok"

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status HealthStatus `json:"status"`
}

// HealthHandler answers liveness probes. It holds no state.
type HealthHandler struct{}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Routes registers the health route on the given chi router. HEAD is
// answered too; net/http drops the body.
func (h *HealthHandler) Routes(r chi.Router) {
	r.Get("/", h.Health)
	r.Head("/", h.Health)
}

// Health always reports {"status":"ok"}.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: StatusOK})
}

package httpx

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports backend liveness. *sql.DB and the redis client both satisfy
// it through small adapters in bootstrap.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlers exposes the liveness endpoint.
type HealthHandlers struct {
	version string
	checks  map[string]Pinger
}

// NewHealthHandlers constructs the health handler. checks maps a backend name
// to its pinger.
func NewHealthHandlers(version string, checks map[string]Pinger) *HealthHandlers {
	return &HealthHandlers{version: version, checks: checks}
}

// Health handles GET /health. Degraded backends flip the status to 503 and
// are named in the response.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	backends := make(map[string]string, len(h.checks))
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			backends[name] = "down"
			status = http.StatusServiceUnavailable
		} else {
			backends[name] = "up"
		}
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	WriteJSON(w, status, map[string]any{
		"status":   overall,
		"version":  h.version,
		"backends": backends,
	})
}

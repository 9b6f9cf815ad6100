package gateway

import (
	"net/http"

	"github.com/flemzord/bootunpack/internal/pipeline"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status string              `json:"status"` // "ok" or "saturated"
	Pool   *pipeline.PoolStats `json:"pool,omitempty"`
}

// handleHealth returns an http.HandlerFunc for GET /health.
// Returns 200 while the job queue has room, 503 once it is full and new
// /unpack requests are being turned away.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{Status: "ok"}
		code := http.StatusOK

		if g.stats != nil {
			stats := g.stats.Stats()
			resp.Pool = &stats
			if stats.Capacity > 0 && stats.Queued >= stats.Capacity {
				resp.Status = "saturated"
				code = http.StatusServiceUnavailable
			}
		}

		writeJSON(w, code, resp)
	}
}

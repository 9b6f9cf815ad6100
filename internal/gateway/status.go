package gateway

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/bootunpack/internal/core"
	"github.com/flemzord/bootunpack/internal/history"
	"github.com/flemzord/bootunpack/internal/pipeline"
)

const defaultRequestLimit = 20

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Version string              `json:"version,omitempty"`
	Uptime  float64             `json:"uptime_seconds"`
	Pool    *pipeline.PoolStats `json:"pool,omitempty"`
	History bool                `json:"history"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			Version: g.version,
			Uptime:  time.Since(g.startedAt).Truncate(time.Second).Seconds(),
			History: g.history != nil,
		}
		if g.stats != nil {
			stats := g.stats.Stats()
			resp.Pool = &stats
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleRecentRequests returns an http.HandlerFunc for GET /api/requests.
// The optional limit query parameter is clamped to 1..MaxRecent.
func (g *Gateway) handleRecentRequests() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.history == nil {
			http.Error(w, "history not available", http.StatusServiceUnavailable)
			return
		}

		limit := min(defaultRequestLimit, g.config.MaxRecent)
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = min(n, g.config.MaxRecent)
		}

		records, err := g.history.Recent(r.Context(), limit)
		if err != nil {
			g.logger.Error("gateway: read history", "error", err)
			http.Error(w, "history unavailable", http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []history.Record{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}

// handleListJobs lists the scheduled maintenance jobs.
func (g *Gateway) handleListJobs() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		jobs := []string{}
		if g.jobs != nil {
			jobs = append(jobs, g.jobs.Jobs()...)
		}
		writeJSON(w, http.StatusOK, jobs)
	}
}

// handleTriggerJob starts a maintenance job outside its schedule. The run
// is asynchronous; 202 only means it was handed to the scheduler.
func (g *Gateway) handleTriggerJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.jobs == nil {
			http.Error(w, "maintenance not scheduled", http.StatusServiceUnavailable)
			return
		}
		name := chi.URLParam(r, "job")
		if !slices.Contains(g.jobs.Jobs(), name) {
			http.Error(w, "unknown job", http.StatusNotFound)
			return
		}
		if !g.jobs.Trigger(name) {
			http.Error(w, "scheduler not running", http.StatusServiceUnavailable)
			return
		}
		g.logger.Info("gateway: maintenance job triggered", "job", name, "remote_addr", r.RemoteAddr)
		writeJSON(w, http.StatusAccepted, map[string]string{"job": name, "status": "triggered"})
	}
}

type moduleJSON struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
}

// handleListModules lists all compiled modules (for /api/modules).
func (g *Gateway) handleListModules() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		mods := core.GetModules()
		out := make([]moduleJSON, 0, len(mods))
		for _, m := range mods {
			out = append(out, moduleJSON{
				ID:        string(m.ID),
				Namespace: m.ID.Namespace(),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

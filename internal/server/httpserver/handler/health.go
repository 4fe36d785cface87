// Package handler provides HTTP request handlers for PairHub.
package handler

import (
	"net/http"
	"time"

	"github.com/yndnr/pairhub-go/internal/core/domain"
	"github.com/yndnr/pairhub-go/internal/infra/buildinfo"
)

// handleHealth handles GET /health.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"status":  "healthy",
		"version": buildinfo.Get(),
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReady handles GET /ready. It fails while the registry is shutting
// down.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.manager == nil || !h.manager.Accepting() {
		WriteError(w, r, domain.ErrServiceUnavailable.WithDetails("shutting down"))
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"status":   "ready",
		"sessions": h.manager.Count(),
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /metrics.
func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		http.NotFound(w, r)
		return
	}
	h.metrics.Handler().ServeHTTP(w, r)
}

// Package handler provides HTTP request handlers for PairHub.
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/yndnr/pairhub-go/internal/core/domain"
)

// HeartbeatInterval is how often an idle event stream sends a comment line.
var HeartbeatInterval = 15 * time.Second

// handleEvents handles GET /events as a Server-Sent Events stream.
// ?tenant_id= restricts the stream to one tenant.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		h.handleServiceError(w, r, domain.ErrServiceUnavailable.WithDetails("event stream disabled"))
		return
	}

	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID != "" {
		if err := domain.ValidateTenantID(tenantID); err != nil {
			h.handleServiceError(w, r, err)
			return
		}
	}

	rc := http.NewResponseController(w)
	sub := h.hub.Subscribe(tenantID, 0)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	if err := rc.Flush(); err != nil {
		h.logger.Warn("event stream not flushable", "error", err)
		return
	}

	heartbeat := time.NewTicker(HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sub.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case ev := <-sub.C():
			if err := writeEvent(w, ev); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", ev.ID, ev.Type, data)
	return err
}

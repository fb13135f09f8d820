package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/yndnr/apnsconn/internal/core/domain"
)

// handleHealth handles GET /health. The process is live whether or not
// the gateway connection is enabled.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status: "healthy",
		Time:   h.now().UTC().Format(time.RFC3339),
	})
}

// handleReady handles GET /ready: 200 only while a connection is held
// (and answers a ping, when configured).
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	conn, err := h.source.GetConnection()
	if err != nil {
		h.writeError(w, r, http.StatusServiceUnavailable, domain.CodeNotConnected, "gateway connection not enabled")
		return
	}

	if hc, ok := conn.(interface{ Healthy() bool }); ok && !hc.Healthy() {
		h.writeError(w, r, http.StatusServiceUnavailable, domain.CodeConnectionBuild, "gateway connection cannot take new requests")
		return
	}

	if h.readyPingTimeout > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), h.readyPingTimeout)
		defer cancel()
		if err := conn.Ping(ctx); err != nil {
			h.logger.Warn("readiness ping failed", "connection_id", conn.ID(), "error", err)
			h.writeError(w, r, http.StatusServiceUnavailable, domain.CodeConnectionBuild, "gateway connection not responding")
			return
		}
	}

	h.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status: "ready",
		Time:   h.now().UTC().Format(time.RFC3339),
	})
}

package handler

import (
	"context"
	"net/http"

	"github.com/yndnr/apnsconn/internal/infra/buildinfo"
	"github.com/yndnr/apnsconn/internal/infra/credstore"
	"github.com/yndnr/apnsconn/internal/telemetry/logger"
)

// credentialReporter is implemented by connections that can describe
// their client certificate.
type credentialReporter interface {
	Credential() credstore.BundleInfo
}

// handleStatus handles GET /status.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Connection: h.source.Status(),
		Build:      buildinfo.Get(),
	}

	if conn, err := h.source.GetConnection(); err == nil {
		if cr, ok := conn.(credentialReporter); ok {
			info := cr.Credential()
			resp.Credential = &info
		}
	}

	h.writeJSON(w, r, http.StatusOK, resp)
}

// handleReload handles POST /admin/v1/reload: re-enable with the last
// configuration, e.g. after the bundle was replaced by hand.
func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	logger.L(r.Context()).Info("operator requested connection reload")

	// Reload closes the live connection before dialing again, so a client
	// hanging up must not abort it halfway.
	ctx := context.WithoutCancel(r.Context())
	if err := h.source.Reload(ctx); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, h.source.Status())
}

package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/yndnr/apnsconn/internal/core/domain"
	"github.com/yndnr/apnsconn/internal/core/service"
	"github.com/yndnr/apnsconn/internal/telemetry/logger"
)

// ConnectionSource is the part of the connection manager the handlers
// read from.
type ConnectionSource interface {
	Status() service.ConnectionStatus
	GetConnection() (service.Connection, error)
	Reload(ctx context.Context) error
}

// Handler serves the status endpoints.
type Handler struct {
	source ConnectionSource
	logger *slog.Logger
	mux    *http.ServeMux
	now    func() time.Time

	readyPingTimeout time.Duration
}

// Option configures a Handler.
type Option func(*Handler)

// WithReadyPing makes /ready ping the connection, bounded by timeout.
// Zero disables the ping.
func WithReadyPing(timeout time.Duration) Option {
	return func(h *Handler) {
		h.readyPingTimeout = timeout
	}
}

// New creates a new Handler.
func New(source ConnectionSource, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		source: source,
		logger: logger,
		mux:    http.NewServeMux(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)
	h.mux.HandleFunc("GET /status", h.handleStatus)
	h.mux.HandleFunc("POST /admin/v1/reload", h.handleReload)
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := logger.RequestIDFromContext(r.Context())
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID := logger.RequestIDFromContext(r.Context())
	response := NewErrorResponse(requestID, code, message)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

// writeDomainError maps a DomainError code to an HTTP status.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if !domain.IsDomainError(err, "") {
		h.logger.Error("internal error", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, CodeInternal, "internal server error")
		return
	}
	code := domain.GetErrorCode(err)
	h.writeError(w, r, errorCodeToHTTPStatus(code), code, err.Error())
}

func errorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.CodeInvalidConfiguration:
		return http.StatusConflict
	case domain.CodeCredentialLoad, domain.CodeConnectionBuild:
		return http.StatusBadGateway
	case domain.CodeNotConnected:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Package handler provides HTTP request handlers for PairHub.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yndnr/pairhub-go/internal/broadcast"
	"github.com/yndnr/pairhub-go/internal/core/domain"
	"github.com/yndnr/pairhub-go/internal/core/service"
	"github.com/yndnr/pairhub-go/internal/telemetry/logger"
	"github.com/yndnr/pairhub-go/internal/telemetry/metric"
)

// Request body limits.
const (
	maxJSONBody = 1 << 20
	maxFileBody = 96 << 20
)

// Config holds the handler dependencies.
type Config struct {
	Manager *service.SessionManager
	Hub     *broadcast.Hub
	Metrics *metric.Registry
	Logger  *slog.Logger
}

// Handler is the main HTTP handler that routes requests to appropriate handlers.
type Handler struct {
	manager *service.SessionManager
	hub     *broadcast.Hub
	metrics *metric.Registry
	logger  *slog.Logger
	mux     *http.ServeMux
}

// New creates a new Handler.
func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	h := &Handler{
		manager: cfg.Manager,
		hub:     cfg.Hub,
		metrics: cfg.Metrics,
		logger:  cfg.Logger.With("component", "http"),
		mux:     http.NewServeMux(),
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
	h.mux.HandleFunc("GET /metrics", h.handleMetrics)

	h.mux.HandleFunc("GET /tenants", h.handleListTenants)
	h.mux.HandleFunc("POST /tenants/{id}/login", h.handleLogin)
	h.mux.HandleFunc("GET /tenants/{id}/status", h.handleStatus)
	h.mux.HandleFunc("GET /tenants/{id}/pairing-code", h.handlePairingCode)
	h.mux.HandleFunc("POST /tenants/{id}/messages/text", h.handleSendText)
	h.mux.HandleFunc("POST /tenants/{id}/messages/file", h.handleSendFile)
	h.mux.HandleFunc("POST /tenants/{id}/registered", h.handleRegistered)
	h.mux.HandleFunc("POST /tenants/{id}/logout", h.handleLogout)
	h.mux.HandleFunc("POST /tenants/{id}/close", h.handleClose)

	h.mux.HandleFunc("GET /events", h.handleEvents)
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

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if !domain.IsDomainError(err, "") {
		h.logger.Warn("protocol error", "request_id", logger.RequestIDFromContext(r.Context()), "error", err)
	} else if domain.GetErrorCode(err) == domain.ErrInternal.Code {
		h.logger.Error("internal error", "request_id", logger.RequestIDFromContext(r.Context()), "error", err)
	}
	WriteError(w, r, err)
}

// WriteError writes err in the standard envelope. Errors without a domain
// code are reported as unclassified protocol errors.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		de = domain.ErrUnknown.WithDetails(err.Error())
	}

	var details any
	if de.Details != "" {
		details = de.Details
	}
	response := NewErrorResponse(logger.RequestIDFromContext(r.Context()), de.Code, de.Message, details)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", de.Code)
	w.WriteHeader(StatusForCode(de.Code))
	json.NewEncoder(w).Encode(response)
}

// StatusForCode maps an error code to an HTTP status.
func StatusForCode(code string) int {
	switch code {
	case domain.ErrTenantNotFound.Code, domain.ErrCredentialNotFound.Code:
		return http.StatusNotFound
	case domain.ErrNotReady.Code, domain.ErrAuthFailed.Code:
		return http.StatusConflict
	case domain.ErrTimeout.Code:
		return http.StatusGatewayTimeout
	case domain.ErrStoreUnavailable.Code, domain.ErrServiceUnavailable.Code:
		return http.StatusServiceUnavailable
	case domain.ErrUnknown.Code:
		return http.StatusBadGateway
	case domain.ErrBadRequest.Code:
		return http.StatusBadRequest
	case domain.ErrAPIKeyMissing.Code, domain.ErrAPIKeyInvalid.Code:
		return http.StatusUnauthorized
	case domain.ErrRateLimited.Code:
		return http.StatusTooManyRequests
	}
	if strings.HasPrefix(code, "PH-ARG-") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// decodeJSON decodes the request body into v. An empty body leaves v
// untouched when optional is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any, optional bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	err := json.NewDecoder(r.Body).Decode(v)
	switch {
	case err == nil:
		return nil
	case optional && errors.Is(err, io.EOF):
		return nil
	default:
		return domain.ErrBadRequest.WithDetails("invalid request body").WithCause(err)
	}
}

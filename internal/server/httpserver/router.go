package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/pairhub-go/internal/broadcast"
	"github.com/yndnr/pairhub-go/internal/core/service"
	"github.com/yndnr/pairhub-go/internal/server/httpserver/handler"
	"github.com/yndnr/pairhub-go/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	Manager *service.SessionManager
	Hub     *broadcast.Hub

	// AuthService guards /tenants and /events.
	AuthService *service.AuthService

	Metrics *metric.Registry
	Logger  *slog.Logger

	// CORSAllowedOrigins is the list of allowed CORS origins (empty = allow all).
	CORSAllowedOrigins []string

	// RateLimit is requests per second per client IP. Zero disables it.
	RateLimit int

	// EnableAudit enables audit logging for API requests.
	EnableAudit bool
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		RateLimit:   100,
		EnableAudit: true,
	}
}

// NewRouter creates the HTTP router with all routes and middleware.
//
// Probes and /metrics are public. Tenant and event routes go through CORS,
// rate limiting, audit and API key auth, in that order.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	auditLog := log.With("component", "audit")

	h := handler.New(handler.Config{
		Manager: cfg.Manager,
		Hub:     cfg.Hub,
		Metrics: cfg.Metrics,
		Logger:  log,
	})

	base := []Middleware{
		RequestID(),
		Recover(log),
		Instrument(cfg.Metrics),
	}
	public := Chain(h, base...)

	api := append([]Middleware{}, base...)
	api = append(api, CORS(cfg.CORSAllowedOrigins))
	if cfg.RateLimit > 0 {
		api = append(api, RateLimit(service.NewRateLimiterRegistry(cfg.RateLimit)))
	}
	if cfg.EnableAudit {
		api = append(api, Audit(auditLog))
	}
	api = append(api, Auth(cfg.AuthService))
	business := Chain(h, api...)

	mux := http.NewServeMux()

	mux.Handle("GET /health", public)
	mux.Handle("GET /ready", public)
	mux.Handle("GET /metrics", public)

	mux.Handle("GET /tenants", business)
	mux.Handle("POST /tenants/{id}/login", business)
	mux.Handle("GET /tenants/{id}/status", business)
	mux.Handle("GET /tenants/{id}/pairing-code", business)
	mux.Handle("POST /tenants/{id}/messages/text", business)
	mux.Handle("POST /tenants/{id}/messages/file", business)
	mux.Handle("POST /tenants/{id}/registered", business)
	mux.Handle("POST /tenants/{id}/logout", business)
	mux.Handle("POST /tenants/{id}/close", business)

	mux.Handle("GET /events", business)

	// CORS preflight.
	mux.Handle("OPTIONS /tenants", business)
	mux.Handle("OPTIONS /tenants/", business)
	mux.Handle("OPTIONS /events", business)

	return mux
}

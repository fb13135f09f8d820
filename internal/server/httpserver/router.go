package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yndnr/apnsconn/internal/server/httpserver/handler"
	"github.com/yndnr/apnsconn/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Source is the connection manager being reported on.
	Source handler.ConnectionSource

	// Metrics backs /metrics and request instrumentation.
	// Nil uses the global registry.
	Metrics *metric.Registry

	// Logger for request logging.
	Logger *slog.Logger

	// AdminAllowList is the IP/CIDR allowlist for admin API (empty = no restriction).
	AdminAllowList []string

	// GlobalRateLimit is the rate limit per client IP (requests/second).
	// Zero disables limiting.
	GlobalRateLimit int

	// ReadyPingTimeout makes /ready ping the gateway. Zero skips the ping.
	ReadyPingTimeout time.Duration
}

// NewRouter creates the status router with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	if cfg == nil {
		cfg = DefaultRouterConfig()
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	reg := cfg.Metrics
	if reg == nil {
		reg = metric.Global()
	}

	var opts []handler.Option
	if cfg.ReadyPingTimeout > 0 {
		opts = append(opts, handler.WithReadyPing(cfg.ReadyPingTimeout))
	}
	h := handler.New(cfg.Source, log, opts...)

	// One limiter set shared by every route.
	var limit Middleware
	if cfg.GlobalRateLimit > 0 {
		limit = RateLimit(cfg.GlobalRateLimit)
	}

	mux := http.NewServeMux()

	// Order: ServerHeader -> RequestID -> Recover -> AccessLog -> Instrument -> RateLimit -> extra -> handler
	route := func(pattern, path string, next http.Handler, extra ...Middleware) {
		mws := []Middleware{
			ServerHeader(),
			RequestID(log),
			Recover(log),
			AccessLog(log),
			Instrument(reg, path),
		}
		if limit != nil {
			mws = append(mws, limit)
		}
		mws = append(mws, extra...)
		mux.Handle(pattern, Chain(next, mws...))
	}

	route("GET /health", "/health", h)
	route("GET /ready", "/ready", h)
	route("GET /status", "/status", h)
	route("GET /metrics", "/metrics", reg.Handler())

	route("POST /admin/v1/reload", "/admin/v1/reload", h, NetworkACL(&NetworkACLConfig{
		AllowList: cfg.AdminAllowList,
		Logger:    log,
	}))

	return mux
}

// DefaultRouterConfig returns default router configuration. The admin
// API only answers loopback clients.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		AdminAllowList:  []string{"127.0.0.1", "::1"},
		GlobalRateLimit: 100,
	}
}

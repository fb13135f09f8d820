package httpserver

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/apnsconn/internal/infra/buildinfo"
	"github.com/yndnr/apnsconn/internal/server/httpserver/handler"
	"github.com/yndnr/apnsconn/internal/telemetry/logger"
	"github.com/yndnr/apnsconn/internal/telemetry/metric"
)

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain chains multiple middlewares together. The first middleware is
// the outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RequestID tags each request with an ID (taken from X-Request-ID or a
// new ULID) and puts it, plus a request-scoped logger, into the context.
func RequestID(base *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = "req-" + ulid.Make().String()
			}

			w.Header().Set("X-Request-ID", requestID)

			ctx := logger.WithRequestID(r.Context(), requestID)
			if base != nil {
				ctx = logger.WithLogger(ctx, logger.Wrap(base))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Recover recovers from panics and returns a 500 envelope.
func Recover(log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("panic recovered",
						"request_id", logger.RequestIDFromContext(r.Context()),
						"error", err,
						"path", r.URL.Path,
					)
					writeError(w, r, http.StatusInternalServerError, handler.CodeInternal, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// AccessLog logs each completed request. Successful requests are logged
// at debug level so health checks do not flood the log.
func AccessLog(log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			attrs := []any{
				"request_id", logger.RequestIDFromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"client_ip", getClientIP(r),
			}

			switch {
			case wrapped.statusCode >= 500:
				log.Error("request completed with error", attrs...)
			case wrapped.statusCode >= 400:
				log.Warn("request completed with client error", attrs...)
			default:
				log.Debug("request completed", attrs...)
			}
		})
	}
}

// Instrument records request counts and latency. path is the route
// pattern, not the raw URL, to bound label cardinality.
func Instrument(reg *metric.Registry, path string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			reg.RecordRequest(path, r.Method, strconv.Itoa(wrapped.statusCode))
			reg.ObserveRequestDuration(path, r.Method, time.Since(start).Seconds())
		})
	}
}

// Per-IP limiter bookkeeping bounds.
const (
	limiterIdleTTL = 3 * time.Minute
	maxLimiters    = 10000
)

// RateLimit applies a per-client-IP token bucket. burst equals the
// per-second rate.
func RateLimit(requestsPerSecond int) Middleware {
	limiters := newIPLimiters(requestsPerSecond)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiters.get(getClientIP(r)).Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, r, http.StatusTooManyRequests, CodeRateLimited, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ipLimiters holds one limiter per client IP. Entries idle for ttl are
// swept, and at most max entries are kept; the least recently seen one
// makes room for a new client.
type ipLimiters struct {
	mu        sync.Mutex
	rps       int
	ttl       time.Duration
	max       int
	now       func() time.Time
	lastSweep time.Time
	entries   map[string]*ipLimiterEntry
}

type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiters(rps int) *ipLimiters {
	return &ipLimiters{
		rps:     rps,
		ttl:     limiterIdleTTL,
		max:     maxLimiters,
		now:     time.Now,
		entries: make(map[string]*ipLimiterEntry),
	}
}

func (l *ipLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.ttl {
		l.sweep(now)
	}

	e, ok := l.entries[ip]
	if !ok {
		if len(l.entries) >= l.max {
			l.evictOldest()
		}
		e = &ipLimiterEntry{limiter: rate.NewLimiter(rate.Limit(l.rps), l.rps)}
		l.entries[ip] = e
	}
	e.lastSeen = now
	return e.limiter
}

func (l *ipLimiters) sweep(now time.Time) {
	for ip, e := range l.entries {
		if now.Sub(e.lastSeen) >= l.ttl {
			delete(l.entries, ip)
		}
	}
	l.lastSweep = now
}

func (l *ipLimiters) evictOldest() {
	var (
		oldestIP string
		oldest   time.Time
	)
	for ip, e := range l.entries {
		if oldestIP == "" || e.lastSeen.Before(oldest) {
			oldestIP, oldest = ip, e.lastSeen
		}
	}
	delete(l.entries, oldestIP)
}

// NetworkACLConfig holds configuration for network ACL middleware.
type NetworkACLConfig struct {
	// AllowList is the list of allowed IP/CIDR entries.
	// Empty list means no restriction.
	AllowList []string

	// Logger for logging denied requests.
	Logger *slog.Logger
}

// NetworkACL rejects clients whose IP is not in the allowlist.
func NetworkACL(cfg *NetworkACLConfig) Middleware {
	var networks []*net.IPNet

	for _, entry := range cfg.AllowList {
		if !strings.Contains(entry, "/") {
			if ip := net.ParseIP(entry); ip != nil && ip.To4() != nil {
				entry += "/32"
			} else {
				entry += "/128"
			}
		}
		_, ipNet, err := net.ParseCIDR(entry)
		if err != nil {
			if cfg.Logger != nil {
				cfg.Logger.Warn("invalid entry in allowlist", "entry", entry, "error", err)
			}
			continue
		}
		networks = append(networks, ipNet)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(cfg.AllowList) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			clientIP := getClientIP(r)
			ip := net.ParseIP(clientIP)
			if ip != nil {
				for _, network := range networks {
					if network.Contains(ip) {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			if cfg.Logger != nil {
				cfg.Logger.Warn("request denied by network ACL",
					"client_ip", clientIP,
					"path", r.URL.Path,
				)
			}
			writeError(w, r, http.StatusForbidden, CodeForbidden, "client not in allowlist")
		})
	}
}

// ServerHeader sets the Server response header to the build user agent.
func ServerHeader() Middleware {
	ua := buildinfo.UserAgent()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Server", ua)
			next.ServeHTTP(w, r)
		})
	}
}

// Middleware error codes.
const (
	CodeRateLimited = "APNS-SYS-4290"
	CodeForbidden   = "APNS-SYS-4030"
)

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(handler.NewErrorResponse(logger.RequestIDFromContext(r.Context()), code, message))
}

// getClientIP returns the peer IP. Forwarding headers are ignored: the
// status server is not meant to sit behind a proxy, and trusting them
// would let any client bypass the ACL.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

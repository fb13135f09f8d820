// Package httpserver provides the status HTTP server for apnsconn.
//
// It uses net/http with a small middleware chain (request IDs, panic
// recovery, access logging, Prometheus instrumentation, per-IP rate
// limiting and an optional network ACL for admin routes).
//
// Routes:
//
//   - GET /health: process liveness
//   - GET /ready: 200 while a gateway connection is held, else 503
//   - GET /status: connection snapshot, credential and build info
//   - GET /metrics: Prometheus exposition
//   - POST /admin/v1/reload: re-enable with the last configuration
package httpserver

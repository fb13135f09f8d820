// Package handler provides HTTP request handlers for the apnsconn status
// server.
//
// This package contains handlers for all HTTP endpoints:
//
//   - health.go: liveness and readiness checks
//   - status.go: connection status snapshot and operator reload
//
// All JSON responses use the Response envelope; /metrics is served by
// the Prometheus handler instead.
package handler

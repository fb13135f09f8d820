// Package logger provides structured logging for apnsconn.
//
// This package wraps log/slog:
//
//   - logger.go: handler configuration, global level and convenience helpers
//   - context.go: context-aware logging with request IDs
//   - redact.go: sensitive data redaction
//
// Features:
//
//   - JSON and text output formats
//   - Log level filtering, adjustable at runtime
//   - Automatic masking of passwords and private key material
//   - Context propagation for request tracing
package logger

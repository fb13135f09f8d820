// Package config provides server configuration for apnsconn.
//
// This package defines the server configuration structure and validation:
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Structural validation (addresses, levels, file existence)
//   - sanitize.go: Log sanitization (hide the credential password)
//
// Configuration is loaded via internal/infra/confloader and supports
// multiple sources: files, environment variables, and flags.
//
// Missing gateway identifier or credential path is not rejected here:
// the connection manager reports those as InvalidConfiguration and the
// host keeps running disabled.
package config

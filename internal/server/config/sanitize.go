package config

import "github.com/yndnr/apnsconn/internal/telemetry/logger"

// Sanitize returns a copy of the config with sensitive fields masked.
//
// This is used for logging and printing configuration without exposing
// the credential password.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg

	if pw := sanitized.APNs.CredentialPassword; pw != nil {
		masked := logger.RedactString(*pw)
		sanitized.APNs.CredentialPassword = &masked
	}

	return &sanitized
}

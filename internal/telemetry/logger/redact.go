package logger

import (
	"log/slog"
	"strings"
)

// Sensitive key patterns that should be redacted. Matching is by
// substring, so "credential_password" and "apns.credential_password"
// are both covered while "credential_path" is not.
var sensitiveKeyPatterns = []string{
	"password",
	"passphrase",
	"secret",
	"private_key",
	"token",
	"authorization",
}

// pemPrivateKeyMarker appears in every PEM-encoded private key block
// (PKCS#1, PKCS#8, EC).
const pemPrivateKeyMarker = "PRIVATE KEY-----"

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive checks if an attribute contains sensitive data
// and redacts it if necessary.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()

		// Key material is redacted whatever the key name.
		if IsSensitiveValue(strVal) {
			return slog.String(a.Key, redactedValue)
		}

		if strVal != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	}

	// Handle nested groups recursively
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// RedactString returns the redaction placeholder for non-empty values.
// Use this when a secret must be shown as present without revealing it,
// for example in a sanitized config dump.
func RedactString(value string) string {
	if value == "" {
		return ""
	}
	return redactedValue
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// IsSensitiveValue checks if a value appears to be private key material.
func IsSensitiveValue(value string) bool {
	return strings.Contains(value, pemPrivateKeyMarker)
}

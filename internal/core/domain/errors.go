// Package domain defines the core domain models for apnsconn.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain error with a structured error code.
// Codes follow the APNS-<AREA>-<NNNN> format.
type DomainError struct {
	Code    string // Error code (e.g., "APNS-CRED-4010")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches any DomainError carrying the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Error codes.
const (
	CodeInvalidConfiguration = "APNS-CONF-4000"
	CodeCredentialLoad       = "APNS-CRED-4010"
	CodeConnectionBuild      = "APNS-CONN-5020"
	CodeNotConnected         = "APNS-CONN-5030"
)

var (
	// ErrInvalidConfiguration indicates a required configuration field is
	// missing or empty. No connection attempt is made.
	ErrInvalidConfiguration = NewDomainError(CodeInvalidConfiguration, "invalid configuration")

	// ErrCredentialLoad indicates the credential bundle could not be read
	// or decoded (missing file, wrong password, malformed bundle).
	ErrCredentialLoad = NewDomainError(CodeCredentialLoad, "credential load failed")

	// ErrConnectionBuild indicates the TLS/HTTP2 client could not be
	// established against the gateway endpoint.
	ErrConnectionBuild = NewDomainError(CodeConnectionBuild, "connection build failed")

	// ErrNotConnected indicates no live connection handle is held.
	ErrNotConnected = NewDomainError(CodeNotConnected, "not connected")
)

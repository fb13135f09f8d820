package service

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/yndnr/apnsconn/internal/core/domain"
)

// Connection is an open, authenticated gateway connection.
// The manager owns it; callers borrow it and must not close it.
type Connection interface {
	// ID uniquely identifies this connection.
	ID() string

	// Endpoint returns the gateway endpoint the connection is bound to.
	Endpoint() domain.Endpoint

	// RoundTrip sends a request over the shared connection.
	RoundTrip(req *http.Request) (*http.Response, error)

	// Ping checks the connection is alive.
	Ping(ctx context.Context) error

	// Close releases the connection and its socket.
	Close() error
}

// CredentialLoader loads a client credential bundle.
type CredentialLoader interface {
	Load(path, password string) (*tls.Certificate, error)
}

// Dialer builds a connection to a gateway endpoint using a client
// certificate. It must either return an established connection or an
// error, never both nil.
type Dialer interface {
	Dial(ctx context.Context, ep domain.Endpoint, cert *tls.Certificate) (Connection, error)
}

// Metrics receives lifecycle observations.
type Metrics interface {
	ObserveEnable(outcome string, elapsed time.Duration)
	ObserveDisable()
	SetConnected(connected bool)
}

// Enable outcomes reported to Metrics.
const (
	OutcomeSuccess              = "success"
	OutcomeInvalidConfiguration = "invalid_configuration"
	OutcomeCredentialLoad       = "credential_load"
	OutcomeConnectionBuild      = "connection_build"
)

type nopMetrics struct{}

func (nopMetrics) ObserveEnable(string, time.Duration) {}
func (nopMetrics) ObserveDisable()                      {}
func (nopMetrics) SetConnected(bool)                    {}

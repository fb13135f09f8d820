package h2client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"golang.org/x/net/http2"

	"github.com/yndnr/apnsconn/internal/core/domain"
	"github.com/yndnr/apnsconn/internal/core/service"
)

var (
	// ErrNoCertificate is returned when Dial is called without a client
	// certificate.
	ErrNoCertificate = errors.New("h2client: client certificate required")

	// ErrHTTP2NotNegotiated is returned when the gateway does not select
	// h2 via ALPN.
	ErrHTTP2NotNegotiated = errors.New("h2client: gateway did not negotiate h2")
)

// Default HTTP/2 health check settings.
const (
	DefaultReadIdleTimeout = 60 * time.Second
	DefaultPingTimeout     = 15 * time.Second
)

// Dialer opens gateway connections.
type Dialer struct {
	// RootCAs verifies the gateway certificate. Nil uses system roots.
	RootCAs *x509.CertPool

	// Timeout bounds the whole dial (TCP + TLS + HTTP/2 ping).
	// Zero means no timeout.
	Timeout time.Duration

	// DialContext overrides the TCP dial. Nil uses net.Dialer.
	DialContext func(ctx context.Context, network, addr string) (net.Conn, error)

	// ReadIdleTimeout and PingTimeout configure HTTP/2 health checks on
	// the open connection. Zero selects the defaults.
	ReadIdleTimeout time.Duration
	PingTimeout     time.Duration

	Logger *slog.Logger
}

var _ service.Dialer = (*Dialer)(nil)

// Dial implements service.Dialer.
func (d *Dialer) Dial(ctx context.Context, ep domain.Endpoint, cert *tls.Certificate) (service.Connection, error) {
	c, err := d.DialClient(ctx, ep, cert)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DialClient connects to ep presenting cert and returns a ready client.
// Construction is eager: a rejected client certificate or a gateway that
// does not speak HTTP/2 fails here rather than on the first request.
func (d *Dialer) DialClient(ctx context.Context, ep domain.Endpoint, cert *tls.Certificate) (*Client, error) {
	if cert == nil {
		return nil, ErrNoCertificate
	}

	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	logger := d.logger().With("endpoint", ep.Address())

	rawConn, err := d.dialTCP(ctx, ep.Address())
	if err != nil {
		return nil, fmt.Errorf("h2client: dial %s: %w", ep.Address(), err)
	}

	tlsConfig := d.tlsConfig(ep, cert)
	tlsConn := tls.Client(rawConn, tlsConfig)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, fmt.Errorf("h2client: tls handshake with %s: %w", ep.Host, err)
	}

	state := tlsConn.ConnectionState()
	if state.NegotiatedProtocol != http2.NextProtoTLS {
		tlsConn.Close()
		return nil, fmt.Errorf("%w (got %q)", ErrHTTP2NotNegotiated, state.NegotiatedProtocol)
	}

	transport := &http2.Transport{
		TLSClientConfig: tlsConfig,
		ReadIdleTimeout: d.readIdleTimeout(),
		PingTimeout:     d.pingTimeout(),
	}

	cc, err := transport.NewClientConn(tlsConn)
	if err != nil {
		tlsConn.Close()
		return nil, fmt.Errorf("h2client: http2 client conn: %w", err)
	}

	// With TLS 1.3 the gateway rejects a client certificate only after
	// our side of the handshake completes, so force a round trip.
	if err := cc.Ping(ctx); err != nil {
		cc.Close()
		tlsConn.Close()
		return nil, fmt.Errorf("h2client: initial ping to %s: %w", ep.Host, err)
	}

	c := newClient(ep, cert, tlsConn, cc)

	logger.Debug("gateway connection established",
		"connection_id", c.ID(),
		"tls_version", tls.VersionName(state.Version),
	)

	return c, nil
}

func (d *Dialer) dialTCP(ctx context.Context, addr string) (net.Conn, error) {
	if d.DialContext != nil {
		return d.DialContext(ctx, "tcp", addr)
	}
	var nd net.Dialer
	return nd.DialContext(ctx, "tcp", addr)
}

func (d *Dialer) tlsConfig(ep domain.Endpoint, cert *tls.Certificate) *tls.Config {
	return &tls.Config{
		ServerName:   ep.Host,
		RootCAs:      d.RootCAs,
		Certificates: []tls.Certificate{*cert},
		NextProtos:   []string{http2.NextProtoTLS},
		MinVersion:   tls.VersionTLS12,
	}
}

func (d *Dialer) readIdleTimeout() time.Duration {
	if d.ReadIdleTimeout > 0 {
		return d.ReadIdleTimeout
	}
	return DefaultReadIdleTimeout
}

func (d *Dialer) pingTimeout() time.Duration {
	if d.PingTimeout > 0 {
		return d.PingTimeout
	}
	return DefaultPingTimeout
}

func (d *Dialer) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

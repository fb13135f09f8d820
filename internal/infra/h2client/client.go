package h2client

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
	"golang.org/x/net/http2"

	"github.com/yndnr/apnsconn/internal/core/domain"
	"github.com/yndnr/apnsconn/internal/infra/credstore"
)

// ErrClosed is returned by operations on a closed client.
var ErrClosed = errors.New("h2client: connection closed")

// Client is an open, authenticated HTTP/2 connection to one gateway
// endpoint. It is safe for concurrent use; every request shares the
// same underlying connection.
type Client struct {
	id       string
	endpoint domain.Endpoint
	bundle   credstore.BundleInfo

	conn net.Conn
	cc   *http2.ClientConn

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func newClient(ep domain.Endpoint, cert *tls.Certificate, conn net.Conn, cc *http2.ClientConn) *Client {
	return &Client{
		id:       ulid.Make().String(),
		endpoint: ep,
		bundle:   credstore.Describe(cert),
		conn:     conn,
		cc:       cc,
	}
}

// ID returns a unique identifier for this connection.
func (c *Client) ID() string {
	return c.id
}

// Endpoint returns the gateway endpoint the client is bound to.
func (c *Client) Endpoint() domain.Endpoint {
	return c.endpoint
}

// Credential describes the client certificate presented to the gateway.
func (c *Client) Credential() credstore.BundleInfo {
	return c.bundle
}

// URL returns the absolute https URL for path on the bound endpoint.
func (c *Client) URL(path string) string {
	host := c.endpoint.Host
	if c.endpoint.Port != 443 {
		host = net.JoinHostPort(c.endpoint.Host, strconv.Itoa(c.endpoint.Port))
	}
	u := url.URL{Scheme: "https", Host: host, Path: path}
	return u.String()
}

// RoundTrip sends req over the shared connection.
func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	return c.cc.RoundTrip(req)
}

// Ping sends an HTTP/2 PING frame and waits for the acknowledgement.
func (c *Client) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return c.cc.Ping(ctx)
}

// Healthy reports whether the connection is open and can take new
// requests.
func (c *Client) Healthy() bool {
	return !c.Closed() && c.cc.CanTakeNewRequest()
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool {
	return c.closed.Load()
}

// Close interrupts in-flight requests and closes the socket.
// It is safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		ccErr := c.cc.Close()
		connErr := c.conn.Close()
		if ccErr != nil {
			c.closeErr = ccErr
		} else if connErr != nil && !errors.Is(connErr, net.ErrClosed) {
			c.closeErr = connErr
		}
	})
	return c.closeErr
}

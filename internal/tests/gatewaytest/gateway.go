package gatewaytest

import (
	"context"
	"crypto/tls"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/yndnr/apnsconn/internal/core/domain"
)

// Gateway is a local stand-in for the push gateway: TLS 1.2+, HTTP/2
// only, client certificate required and verified against the PKI.
type Gateway struct {
	Server *httptest.Server

	mu          sync.Mutex
	dialed      []string
	serverNames []string
	clientCNs   []string

	active   atomic.Int64
	accepted atomic.Int64
	requests atomic.Int64
}

// StartGateway starts a gateway whose certificate is valid for both real
// gateway hostnames, so clients can verify it under the production or
// development server name. The server is closed via t.Cleanup.
func StartGateway(t testing.TB, pki *PKI) *Gateway {
	t.Helper()

	g := &Gateway{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /3/device/{token}", func(w http.ResponseWriter, r *http.Request) {
		g.requests.Add(1)
		_, _ = io.Copy(io.Discard, r.Body)
		if id := r.Header.Get("apns-id"); id != "" {
			w.Header().Set("apns-id", id)
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewUnstartedServer(mux)
	srv.EnableHTTP2 = true
	srv.Config.ErrorLog = log.New(io.Discard, "", 0)
	srv.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		switch state {
		case http.StateNew:
			g.active.Add(1)
			g.accepted.Add(1)
		case http.StateClosed, http.StateHijacked:
			g.active.Add(-1)
		}
	}
	srv.TLS = &tls.Config{
		MinVersion: tls.VersionTLS12,
		Certificates: []tls.Certificate{
			pki.ServerCertificate(t, domain.ProductionHost, domain.DevelopmentHost, "localhost", "127.0.0.1"),
		},
		ClientAuth: tls.RequireAndVerifyClientCert,
		ClientCAs:  pki.Pool,
		NextProtos: []string{"h2"},
		VerifyConnection: func(cs tls.ConnectionState) error {
			g.mu.Lock()
			defer g.mu.Unlock()
			g.serverNames = append(g.serverNames, cs.ServerName)
			if len(cs.PeerCertificates) > 0 {
				g.clientCNs = append(g.clientCNs, cs.PeerCertificates[0].Subject.CommonName)
			}
			return nil
		},
	}
	srv.StartTLS()
	t.Cleanup(srv.Close)

	g.Server = srv
	return g
}

// Addr returns the listener address.
func (g *Gateway) Addr() string {
	return g.Server.Listener.Addr().String()
}

// DialContext dials the gateway regardless of the requested address and
// records the address that was asked for.
func (g *Gateway) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	g.mu.Lock()
	g.dialed = append(g.dialed, addr)
	g.mu.Unlock()

	var d net.Dialer
	return d.DialContext(ctx, network, g.Addr())
}

// DialedAddrs returns every address passed to DialContext.
func (g *Gateway) DialedAddrs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.dialed...)
}

// ServerNames returns the SNI values of completed handshakes.
func (g *Gateway) ServerNames() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.serverNames...)
}

// ClientCommonNames returns the client certificate CNs of completed
// handshakes.
func (g *Gateway) ClientCommonNames() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.clientCNs...)
}

// ActiveConns returns the number of open server-side connections.
func (g *Gateway) ActiveConns() int64 {
	return g.active.Load()
}

// AcceptedConns returns the number of connections accepted so far.
func (g *Gateway) AcceptedConns() int64 {
	return g.accepted.Load()
}

// Requests returns the number of push requests served.
func (g *Gateway) Requests() int64 {
	return g.requests.Load()
}

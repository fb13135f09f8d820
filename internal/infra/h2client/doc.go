// Package h2client provides the certificate-authenticated TLS/HTTP2
// client connection to the push gateway.
//
//   - dialer.go: eager dial (TCP, TLS handshake with client certificate,
//     ALPN h2, HTTP/2 preface and ping)
//   - client.go: the connection handle lent to notification senders
//
// One Client wraps exactly one TCP connection; closing it releases the
// socket and stops the HTTP/2 read loop.
package h2client

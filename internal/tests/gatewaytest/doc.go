// Package gatewaytest provides test fixtures for apnsconn:
//
//   - pki.go: throwaway CA, client and server certificates, PKCS#12 bundles
//   - gateway.go: local TLS/HTTP2 gateway that requires client certificates
//
// It is imported only from _test.go files.
package gatewaytest

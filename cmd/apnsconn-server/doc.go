// Package main provides the entry point for apnsconn-server.
//
// The server owns one certificate-authenticated HTTP/2 connection to the
// push gateway. At startup it enables the connection from configuration;
// a failure is logged and the process keeps running, reporting
// "disabled" on its status endpoints until a reload succeeds. On
// shutdown the connection is disabled last, after the status server
// has stopped.
//
// Usage:
//
//	apnsconn-server [flags]
//	apnsconn-server --config /etc/apnsconn/apnsconn.yaml
//
// Every key can also be set through APNSCONN_<SECTION>_<KEY>, e.g.
// APNSCONN_APNS_CREDENTIAL_PASSWORD.
package main

// Package connection is the apnsconn-cli client for a running
// apnsconn-server status API.
package connection

// Package command provides CLI command definitions for apnsconn-cli.
//
// Commands are built with urfave/cli/v2:
//
//   - check: enable a connection from config, report, ping, disable
//   - endpoint: show the gateway an environment resolves to
//   - config: show (sanitised) or validate the server configuration
//   - status, reload: talk to a running apnsconn-server
package command

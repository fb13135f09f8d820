// Package main provides the entry point for apnsconn-cli.
//
// apnsconn-cli checks gateway connectivity with a server configuration
// and inspects a running apnsconn-server.
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/apnsconn/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

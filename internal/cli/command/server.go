package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/apnsconn/internal/cli/connection"
	"github.com/yndnr/apnsconn/internal/core/service"
)

// StatusCommand returns the status command.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show the connection status of a running apnsconn-server",
		Action: runStatus,
	}
}

// ReloadCommand returns the reload command.
func ReloadCommand() *cli.Command {
	return &cli.Command{
		Name:   "reload",
		Usage:  "Ask a running apnsconn-server to re-enable its connection",
		Action: runReload,
	}
}

func runStatus(c *cli.Context) error {
	client := connection.NewHTTPClient(c.String("server"))

	ctx, cancel := context.WithTimeout(c.Context, connection.DefaultTimeout)
	defer cancel()

	var status map[string]any
	if err := client.Get(ctx, "/status", &status); err != nil {
		return cli.Exit(fmt.Sprintf("status: %v", err), ExitFailure)
	}
	return render(c, status)
}

func runReload(c *cli.Context) error {
	client := connection.NewHTTPClient(c.String("server"))

	ctx, cancel := context.WithTimeout(c.Context, connection.DefaultTimeout)
	defer cancel()

	var status service.ConnectionStatus
	if err := client.Post(ctx, "/admin/v1/reload", &status); err != nil {
		return cli.Exit(fmt.Sprintf("reload: %v", err), ExitFailure)
	}
	return render(c, status)
}

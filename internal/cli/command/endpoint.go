package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/apnsconn/internal/cli/output"
	"github.com/yndnr/apnsconn/internal/core/domain"
)

// EndpointInfo is one row of the endpoint command.
type EndpointInfo struct {
	Input    string             `json:"input" yaml:"input"`
	Resolved domain.Environment `json:"resolved" yaml:"resolved"`
	Known    bool               `json:"known" yaml:"known"`
	Address  string             `json:"address" yaml:"address"`
}

// EndpointCommand returns the endpoint command.
func EndpointCommand() *cli.Command {
	return &cli.Command{
		Name:      "endpoint",
		Usage:     "Show the gateway endpoint for environments",
		ArgsUsage: "[ENVIRONMENT...]",
		Description: `Resolves each argument the way the connection manager does:
only "Production" selects the production gateway, anything else
falls back to development. Without arguments both are listed.`,
		Action: runEndpoint,
	}
}

func runEndpoint(c *cli.Context) error {
	inputs := c.Args().Slice()
	if len(inputs) == 0 {
		inputs = []string{string(domain.EnvironmentProduction), string(domain.EnvironmentDevelopment)}
	}

	infos := make([]EndpointInfo, 0, len(inputs))
	for _, in := range inputs {
		env := domain.ParseEnvironment(in)
		infos = append(infos, EndpointInfo{
			Input:    in,
			Resolved: env,
			Known:    domain.Environment(in).IsKnown(),
			Address:  domain.ResolveEndpoint(env).Address(),
		})
	}

	if !tableOutput(c) {
		return render(c, infos)
	}

	t := &output.Table{Headers: []string{"INPUT", "ENVIRONMENT", "ADDRESS"}}
	for _, info := range infos {
		in := info.Input
		if in == "" {
			in = `""`
		}
		t.AddRow(in, string(info.Resolved), info.Address)
	}
	return render(c, t)
}

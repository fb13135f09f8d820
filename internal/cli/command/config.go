package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/apnsconn/internal/server/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Server configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the merged configuration with secrets masked",
				Action: configShow,
			},
			{
				Name:   "validate",
				Usage:  "Validate the merged configuration",
				Action: configValidate,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	cfg, err := loadConfig(c, nil)
	if err != nil {
		return cli.Exit(fmt.Sprintf("load config: %v", err), ExitInvalidConfig)
	}
	return render(c, config.Sanitize(cfg))
}

func configValidate(c *cli.Context) error {
	cfg, err := loadConfig(c, nil)
	if err != nil {
		return cli.Exit(fmt.Sprintf("load config: %v", err), ExitInvalidConfig)
	}

	if err := config.Verify(cfg); err != nil {
		return cli.Exit(fmt.Sprintf("invalid config: %v", err), ExitInvalidConfig)
	}
	// The manager would reject these at enable time; catch them here.
	if err := cfg.ToDomainConfig().Validate(); err != nil {
		return cli.Exit(fmt.Sprintf("invalid config: %v", err), ExitInvalidConfig)
	}

	fmt.Fprintln(c.App.Writer, "configuration OK")
	return nil
}

package command

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/apnsconn/internal/cli/output"
	"github.com/yndnr/apnsconn/internal/infra/buildinfo"
	"github.com/yndnr/apnsconn/internal/infra/confloader"
	"github.com/yndnr/apnsconn/internal/server/config"
	"github.com/yndnr/apnsconn/internal/telemetry/logger"
)

// Exit codes. Success is 0.
const (
	ExitFailure       = 1
	ExitInvalidConfig = 2
	ExitCredential    = 3
	ExitConnection    = 4
)

// App creates the CLI application.
func App() *cli.App {
	info := buildinfo.Get()

	return &cli.App{
		Name:    "apnsconn-cli",
		Usage:   "Check and inspect APNs gateway connections",
		Version: fmt.Sprintf("%s (commit: %s, built: %s, %s)", info.Version, info.Commit, info.BuildTime, info.GoVersion),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			CheckCommand(),
			EndpointCommand(),
			ConfigCommand(),
			StatusCommand(),
			ReloadCommand(),
		},
		Before: func(c *cli.Context) error {
			_, err := output.ParseFormat(c.String("output"))
			return err
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Server configuration file (YAML)",
			EnvVars: []string{"APNSCONN_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "apnsconn-server status address",
			EnvVars: []string{"APNSCONN_CLI_SERVER"},
			Value:   config.DefaultStatusAddr,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   string(output.FormatTable),
		},
		&cli.BoolFlag{
			Name:  "no-headers",
			Usage: "Omit the header row in table output",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable debug logging on stderr",
		},
	}
}

// loadConfig loads the server configuration: defaults, then the
// --config file, then APNSCONN_* variables, then overrides.
func loadConfig(c *cli.Context, overrides map[string]any) (*config.ServerConfig, error) {
	cfg := config.Default()

	loader := confloader.NewLoader(
		confloader.WithConfigFile(c.String("config")),
		confloader.WithOverrides(overrides),
	)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// render writes data to the app writer in the selected format.
func render(c *cli.Context, data any) error {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}
	f := output.NewFormatter(format)
	if tf, ok := f.(*output.TableFormatter); ok {
		tf.NoHeaders = c.Bool("no-headers")
	}
	return f.Format(c.App.Writer, data)
}

// tableOutput reports whether human-oriented extras (spinner, hints)
// should be printed.
func tableOutput(c *cli.Context) bool {
	format, _ := output.ParseFormat(c.String("output"))
	return format == output.FormatTable
}

// cliLogger logs to stderr: warnings by default, everything with
// --verbose.
func cliLogger(c *cli.Context) *slog.Logger {
	level := "warn"
	if c.Bool("verbose") {
		level = "debug"
	}
	logger.SetLevel(level)
	return slog.New(logger.NewHandler(logger.Config{
		Level:  level,
		Format: "text",
		Output: errWriter(c),
	}))
}

func errWriter(c *cli.Context) io.Writer {
	if c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return io.Discard
}

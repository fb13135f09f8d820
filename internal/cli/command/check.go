package command

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/apnsconn/internal/cli/output"
	"github.com/yndnr/apnsconn/internal/core/domain"
	"github.com/yndnr/apnsconn/internal/core/service"
	"github.com/yndnr/apnsconn/internal/infra/credstore"
	"github.com/yndnr/apnsconn/internal/infra/h2client"
	"github.com/yndnr/apnsconn/internal/server/config"
)

// DefaultCheckTimeout bounds the whole check when --timeout is not set.
const DefaultCheckTimeout = 30 * time.Second

// CheckReport is the result of the check command.
type CheckReport struct {
	OK         bool                     `json:"ok" yaml:"ok"`
	Connection service.ConnectionStatus `json:"connection" yaml:"connection"`
	Credential *credstore.BundleInfo    `json:"credential,omitempty" yaml:"credential,omitempty"`
	EnableTime string                   `json:"enable_time" yaml:"enable_time"`
	PingTime   string                   `json:"ping_time,omitempty" yaml:"ping_time,omitempty"`
	Warnings   []string                 `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// newDialer builds the gateway dialer for check. Tests replace it to
// reach a local gateway.
var newDialer = func(cfg *config.ServerConfig, roots *x509.CertPool, log *slog.Logger) service.Dialer {
	return &h2client.Dialer{
		RootCAs: roots,
		Timeout: cfg.APNs.DialTimeout,
		Logger:  log,
	}
}

// CheckCommand returns the check command.
func CheckCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Open a gateway connection once, report on it, then close it",
		Description: `Loads the server configuration (file, APNSCONN_* environment, flags),
enables a connection exactly as apnsconn-server would, pings it and
disables it again. Exit status: 0 ok, 2 invalid configuration,
3 credential load failure, 4 connection failure.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "environment", Aliases: []string{"e"}, Usage: "Production or Development"},
			&cli.StringFlag{Name: "identifier", Aliases: []string{"i"}, Usage: "App identifier, e.g. com.example.app"},
			&cli.StringFlag{Name: "credential", Usage: "PKCS#12 bundle path"},
			&cli.StringFlag{Name: "password", Usage: "Bundle password", EnvVars: []string{"APNSCONN_CREDENTIAL_PASSWORD"}},
			&cli.StringFlag{Name: "ca-file", Usage: "Extra PEM roots for the gateway certificate"},
			&cli.DurationFlag{Name: "timeout", Usage: "Overall time limit", Value: DefaultCheckTimeout},
		},
		Action: runCheck,
	}
}

// checkOverrides maps the flags that were set to config keys.
func checkOverrides(c *cli.Context) map[string]any {
	keys := map[string]string{
		"environment": "apns.environment",
		"identifier":  "apns.identifier",
		"credential":  "apns.credential_path",
		"password":    "apns.credential_password",
		"ca-file":     "apns.ca_file",
	}

	overrides := make(map[string]any)
	for flag, key := range keys {
		if c.IsSet(flag) {
			overrides[key] = c.String(flag)
		}
	}
	return overrides
}

func runCheck(c *cli.Context) error {
	cfg, err := loadConfig(c, checkOverrides(c))
	if err != nil {
		return cli.Exit(fmt.Sprintf("load config: %v", err), ExitInvalidConfig)
	}
	if err := config.Verify(cfg); err != nil {
		return cli.Exit(fmt.Sprintf("invalid config: %v", err), ExitInvalidConfig)
	}

	roots, err := credstore.LoadRoots(cfg.APNs.CAFile)
	if err != nil {
		return cli.Exit(fmt.Sprintf("load ca file: %v", err), ExitInvalidConfig)
	}

	log := cliLogger(c)
	mgr := service.NewConnectionManager(
		credstore.NewBundleLoader(),
		newDialer(cfg, roots, log),
		service.WithLogger(log),
	)
	defer mgr.Disable()

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	domainCfg := cfg.ToDomainConfig()

	var spinner *output.Spinner
	if tableOutput(c) {
		spinner = output.NewSpinner(errWriter(c), "connecting to "+domainCfg.Endpoint().String())
		spinner.Start()
		defer spinner.Stop()
	}

	start := time.Now()
	enableErr := mgr.Enable(ctx, domainCfg)
	report := CheckReport{
		Connection: mgr.Status(),
		EnableTime: time.Since(start).Round(time.Millisecond).String(),
	}
	if !domain.Environment(cfg.APNs.Environment).IsKnown() {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("environment %q is not recognised; using %s", cfg.APNs.Environment, domainCfg.ResolvedEnvironment()))
	}

	if enableErr != nil {
		if spinner != nil {
			spinner.Fail(enableErr.Error())
		}
		if err := render(c, report); err != nil {
			return err
		}
		return cli.Exit(fmt.Sprintf("check failed: %v", enableErr), exitCodeFor(enableErr))
	}

	conn, err := mgr.GetConnection()
	if err != nil {
		return cli.Exit(fmt.Sprintf("check failed: %v", err), ExitConnection)
	}

	if cr, ok := conn.(interface{ Credential() credstore.BundleInfo }); ok {
		info := cr.Credential()
		report.Credential = &info
		if info.Topic != "" && info.Topic != domainCfg.Identifier {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("certificate topic %q differs from identifier %q", info.Topic, domainCfg.Identifier))
		}
		switch now := time.Now(); {
		case info.NotAfter.IsZero():
		case info.Expired(now):
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("certificate is outside its validity window (%s to %s)",
					info.NotBefore.Format(time.RFC3339), info.NotAfter.Format(time.RFC3339)))
		case info.NotAfter.Sub(now) < 30*24*time.Hour:
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("certificate expires %s", info.NotAfter.Format(time.RFC3339)))
		}
	}

	pingStart := time.Now()
	if err := conn.Ping(ctx); err != nil {
		if spinner != nil {
			spinner.Fail("ping failed")
		}
		if err := render(c, report); err != nil {
			return err
		}
		return cli.Exit(fmt.Sprintf("ping failed: %v", err), ExitConnection)
	}
	report.PingTime = time.Since(pingStart).Round(time.Microsecond).String()
	report.OK = true

	if spinner != nil {
		spinner.Success("connected to " + conn.Endpoint().String())
	}
	return render(c, report)
}

// exitCodeFor maps an Enable error to the process exit status.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidConfiguration):
		return ExitInvalidConfig
	case errors.Is(err, domain.ErrCredentialLoad):
		return ExitCredential
	case errors.Is(err, domain.ErrConnectionBuild):
		return ExitConnection
	default:
		return ExitFailure
	}
}

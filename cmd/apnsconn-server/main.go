package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/yndnr/apnsconn/internal/core/service"
	"github.com/yndnr/apnsconn/internal/infra/buildinfo"
	"github.com/yndnr/apnsconn/internal/infra/confloader"
	"github.com/yndnr/apnsconn/internal/infra/credstore"
	"github.com/yndnr/apnsconn/internal/infra/h2client"
	"github.com/yndnr/apnsconn/internal/infra/shutdown"
	"github.com/yndnr/apnsconn/internal/server/config"
	"github.com/yndnr/apnsconn/internal/server/httpserver"
	"github.com/yndnr/apnsconn/internal/telemetry/logger"
	"github.com/yndnr/apnsconn/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("apnsconn-server " + buildinfo.String())
		return nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slogLogger := log.Slog()

	info := buildinfo.Get()
	log.Info("starting apnsconn-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile)

	roots, err := credstore.LoadRoots(cfg.APNs.CAFile)
	if err != nil {
		return fmt.Errorf("load ca file: %w", err)
	}

	reg := metric.Global()
	mgr := service.NewConnectionManager(
		credstore.NewBundleLoader(),
		&h2client.Dialer{
			RootCAs: roots,
			Timeout: cfg.APNs.DialTimeout,
			Logger:  slogLogger,
		},
		service.WithLogger(slogLogger),
		service.WithMetrics(reg),
	)
	if err := reg.Register(metric.NewCollector(credentialSource(mgr))); err != nil {
		return fmt.Errorf("register credential collector: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Enable fails soft: the manager has already logged the cause and the
	// process stays up in the disabled state.
	if err := mgr.Enable(ctx, cfg.ToDomainConfig()); err != nil {
		log.Warn("continuing without a gateway connection; fix the configuration and reload")
	}

	shutdownHandler := shutdown.NewHandler(cfg.Status.ShutdownTimeout)
	shutdownHandler.SetLogger(slogLogger)

	// Hooks run in reverse order: the connection is disabled last.
	shutdownHandler.OnShutdown("gateway connection", func(context.Context) error {
		mgr.Disable()
		return nil
	})

	if cfg.Status.Enabled {
		srv, err := startStatusServer(cfg, mgr, reg, slogLogger, shutdownHandler)
		if err != nil {
			mgr.Disable()
			return fmt.Errorf("start status server: %w", err)
		}
		shutdownHandler.OnShutdown("status server", srv.Shutdown)
	}

	var creds *credentialWatch
	if cfg.Watch.Credentials {
		creds = newCredentialWatch(ctx, cfg.Watch, mgr, reg, slogLogger)
		creds.restart(cfg.ToDomainConfig())
		shutdownHandler.OnShutdown("credential watcher", func(context.Context) error {
			creds.stop()
			return nil
		})
	}

	if cfg.Watch.Config && *configFile != "" {
		w, err := startConfigWatcher(ctx, *configFile, cfg, mgr, creds, slogLogger)
		if err != nil {
			log.Warn("config watcher disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config watcher", func(context.Context) error {
				return w.Stop()
			})
		}
	}

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(context.Background()); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig loads configuration from defaults, file and environment.
func loadConfig(configFile string) (*config.ServerConfig, error) {
	cfg := config.Default()

	loader := confloader.NewLoader(confloader.WithConfigFile(configFile))
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// initLogger initializes the structured logger and makes it the default.
func initLogger(cfg *config.ServerConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, err
	}

	logger.SetDefault(log)
	return log, nil
}

func startStatusServer(cfg *config.ServerConfig, mgr *service.ConnectionManager, reg *metric.Registry, log *slog.Logger, sh *shutdown.Handler) (*httpserver.Server, error) {
	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Source:           mgr,
		Metrics:          reg,
		Logger:           log,
		AdminAllowList:   cfg.Status.AllowList,
		GlobalRateLimit:  cfg.Status.RateLimit,
		ReadyPingTimeout: cfg.Status.ReadyPing,
	})

	srv := httpserver.New(cfg.Status.Addr, router)
	if err := srv.Listen(); err != nil {
		return nil, err
	}

	go func() {
		log.Info("status server listening", "addr", srv.Addr())
		if err := srv.Serve(); err != nil {
			log.Error("status server error", "error", err)
			sh.Trigger()
		}
	}()

	return srv, nil
}

// credentialSource reports the validity window of the certificate
// presented on the live connection.
func credentialSource(mgr *service.ConnectionManager) metric.CredentialSource {
	return func() (time.Time, time.Time, bool) {
		conn, err := mgr.GetConnection()
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		cr, ok := conn.(interface{ Credential() credstore.BundleInfo })
		if !ok {
			return time.Time{}, time.Time{}, false
		}
		info := cr.Credential()
		return info.NotBefore, info.NotAfter, true
	}
}

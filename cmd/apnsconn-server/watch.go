package main

import (
	"context"
	"log/slog"
	"sync"

	"github.com/yndnr/apnsconn/internal/core/domain"
	"github.com/yndnr/apnsconn/internal/infra/confloader"
	"github.com/yndnr/apnsconn/internal/infra/credstore"
	"github.com/yndnr/apnsconn/internal/server/config"
	"github.com/yndnr/apnsconn/internal/telemetry/logger"
	"github.com/yndnr/apnsconn/internal/telemetry/metric"
)

// Credential reload results recorded in apnsconn_credential_reloads_total.
const (
	reloadSuccess = "success"
	reloadFailure = "failure"
)

// reloader is the part of the connection manager a credential change
// needs.
type reloader interface {
	Reload(ctx context.Context) error
}

// credentialWatch keeps one bundle watcher pointed at the bundle in use
// and re-enables the connection whenever that bundle changes and decodes
// cleanly. restart replaces the watcher when the path or password moves.
type credentialWatch struct {
	ctx      context.Context
	settings config.WatchSection
	mgr      reloader
	reg      *metric.Registry
	log      *slog.Logger

	mu      sync.Mutex
	current *credstore.Watcher
}

func newCredentialWatch(ctx context.Context, settings config.WatchSection, mgr reloader, reg *metric.Registry, log *slog.Logger) *credentialWatch {
	return &credentialWatch{
		ctx:      ctx,
		settings: settings,
		mgr:      mgr,
		reg:      reg,
		log:      log,
	}
}

// restart stops the running watcher, if any, and watches the bundle
// named by cfg. When the bundle cannot be watched the server runs
// without hot reload until the next restart.
func (c *credentialWatch) restart(cfg domain.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		c.current.Stop()
		c.current = nil
	}

	if cfg.CredentialPath == "" {
		c.log.Warn("credential watcher disabled", "reason", "apns.credential_path is empty")
		return
	}

	w, err := credstore.NewWatcher(cfg.CredentialPath, cfg.Password(),
		credstore.WithLogger(c.log),
		credstore.WithDebounce(c.settings.Debounce),
		credstore.WithReloadLimit(c.settings.ReloadEvery, c.settings.ReloadBurst),
	)
	if err != nil {
		c.log.Warn("credential watcher disabled", "error", err)
		return
	}

	w.OnChange(func(path string) {
		c.log.Info("credential bundle changed, re-enabling connection", "credential_path", path)
		if err := c.mgr.Reload(c.ctx); err != nil {
			c.reg.RecordCredentialReload(reloadFailure)
			return
		}
		c.reg.RecordCredentialReload(reloadSuccess)
	})
	w.StartAsync()

	c.current = w
}

// watcher returns the running bundle watcher, nil when none.
func (c *credentialWatch) watcher() *credstore.Watcher {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *credentialWatch) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		c.current.Stop()
		c.current = nil
	}
}

// enabler is the part of the connection manager a config reload needs.
type enabler interface {
	Enable(ctx context.Context, cfg domain.Config) error
}

// configReloader applies a changed config file: the log level always,
// and the APNs section by re-enabling when it differs from the one in
// use. Other sections need a restart.
type configReloader struct {
	mu      sync.Mutex
	current domain.Config
	mgr     enabler
	creds   *credentialWatch // nil when credential watching is off
	log     *slog.Logger
}

func (r *configReloader) apply(ctx context.Context, path string) {
	cfg, err := loadConfig(path)
	if err != nil {
		r.log.Error("config reload rejected", "config", path, "error", err)
		return
	}

	logger.SetLevel(cfg.Log.Level)

	next := cfg.ToDomainConfig()

	r.mu.Lock()
	defer r.mu.Unlock()

	if next == r.current {
		r.log.Info("config reloaded", "config", path, "log_level", logger.GetLevel())
		return
	}

	r.log.Info("gateway settings changed, re-enabling connection", "apns", next.String())
	r.current = next
	// Failures are logged by the manager.
	_ = r.mgr.Enable(ctx, next)

	if r.creds != nil {
		r.creds.restart(next)
	}
}

func startConfigWatcher(ctx context.Context, path string, cfg *config.ServerConfig, mgr enabler, creds *credentialWatch, log *slog.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return nil, err
	}

	r := &configReloader{
		current: cfg.ToDomainConfig(),
		mgr:     mgr,
		creds:   creds,
		log:     log,
	}
	w.OnChange(func(p string) { r.apply(ctx, p) })
	w.StartAsync()

	return w, nil
}

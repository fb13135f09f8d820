package config

import (
	"time"

	"github.com/yndnr/apnsconn/internal/core/domain"
)

// Default configuration values.
const (
	DefaultStatusAddr      = "127.0.0.1:5090"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultStatusRateLimit = 100

	DefaultWatchDebounce    = 500 * time.Millisecond
	DefaultWatchReloadEvery = 10 * time.Second
	DefaultWatchReloadBurst = 3

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		APNs: APNsSection{
			Environment: string(domain.DefaultEnvironment),
		},
		Status: StatusSection{
			Enabled:         true,
			Addr:            DefaultStatusAddr,
			ShutdownTimeout: DefaultShutdownTimeout,
			AllowList:       []string{"127.0.0.1", "::1"},
			RateLimit:       DefaultStatusRateLimit,
		},
		Watch: WatchSection{
			Debounce:    DefaultWatchDebounce,
			ReloadEvery: DefaultWatchReloadEvery,
			ReloadBurst: DefaultWatchReloadBurst,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

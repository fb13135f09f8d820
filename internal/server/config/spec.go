package config

import (
	"time"

	"github.com/yndnr/apnsconn/internal/core/domain"
)

// ServerConfig is the root configuration for apnsconn-server.
type ServerConfig struct {
	APNs   APNsSection   `koanf:"apns" json:"apns" yaml:"apns"`
	Status StatusSection `koanf:"status" json:"status" yaml:"status"`
	Watch  WatchSection  `koanf:"watch" json:"watch" yaml:"watch"`
	Log    LogSection    `koanf:"log" json:"log" yaml:"log"`
}

// APNsSection configures the gateway connection.
type APNsSection struct {
	// Environment is "Production" or "Development". Anything else selects
	// the development gateway.
	Environment string `koanf:"environment" json:"environment" yaml:"environment"`

	// Identifier is the app identifier, e.g. com.example.app.
	Identifier string `koanf:"identifier" json:"identifier" yaml:"identifier"`

	// CredentialPath is the PKCS#12 bundle path.
	CredentialPath string `koanf:"credential_path" json:"credential_path" yaml:"credential_path"`

	// CredentialPassword unlocks the bundle. Nil and empty both mean no
	// password.
	CredentialPassword *string `koanf:"credential_password" json:"credential_password,omitempty" yaml:"credential_password,omitempty"`

	// DialTimeout bounds connection establishment. Zero means no timeout.
	DialTimeout time.Duration `koanf:"dial_timeout" json:"dial_timeout" yaml:"dial_timeout" validate:"gte=0"`

	// CAFile adds PEM roots for verifying the gateway on top of the
	// system pool.
	CAFile string `koanf:"ca_file" json:"ca_file,omitempty" yaml:"ca_file,omitempty" validate:"omitempty,file"`
}

// StatusSection configures the status HTTP server.
type StatusSection struct {
	Enabled         bool          `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Addr            string        `koanf:"addr" json:"addr" yaml:"addr" validate:"omitempty,listen_addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gt=0"`

	// AllowList restricts the admin API to these IPs or CIDRs. Empty
	// means no restriction.
	AllowList []string `koanf:"allow_list" json:"allow_list" yaml:"allow_list" validate:"dive,cidr|ip"`

	// RateLimit is requests per second per client IP. Zero disables it.
	RateLimit int `koanf:"rate_limit" json:"rate_limit" yaml:"rate_limit" validate:"gte=0"`

	// ReadyPing makes /ready ping the gateway, bounded by this timeout.
	ReadyPing time.Duration `koanf:"ready_ping" json:"ready_ping" yaml:"ready_ping" validate:"gte=0"`
}

// WatchSection configures file watching.
type WatchSection struct {
	// Credentials re-enables the connection when the bundle changes.
	Credentials bool `koanf:"credentials" json:"credentials" yaml:"credentials"`

	// Config applies log level changes from the config file at runtime.
	Config bool `koanf:"config" json:"config" yaml:"config"`

	Debounce    time.Duration `koanf:"debounce" json:"debounce" yaml:"debounce" validate:"gte=0"`
	ReloadEvery time.Duration `koanf:"reload_every" json:"reload_every" yaml:"reload_every" validate:"gt=0"`
	ReloadBurst int           `koanf:"reload_burst" json:"reload_burst" yaml:"reload_burst" validate:"gte=1"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" json:"level" yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `koanf:"format" json:"format" yaml:"format" validate:"oneof=json text console"`
}

// ToDomainConfig converts the APNs section into the manager's Config.
func (c *ServerConfig) ToDomainConfig() domain.Config {
	return domain.NewConfig(
		c.APNs.Environment,
		c.APNs.Identifier,
		c.APNs.CredentialPath,
		c.APNs.CredentialPassword,
	)
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/yndnr/apnsconn/internal/core/domain"
)

// Connection states reported by Status.
const (
	StateDisabled = "disabled"
	StateEnabled  = "enabled"
)

// ConnectionStatus is a point-in-time snapshot of the manager.
type ConnectionStatus struct {
	State         string             `json:"state" yaml:"state"`
	Environment   domain.Environment `json:"environment,omitempty" yaml:"environment,omitempty"`
	Identifier    string             `json:"identifier,omitempty" yaml:"identifier,omitempty"`
	Endpoint      *domain.Endpoint   `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	ConnectionID  string             `json:"connection_id,omitempty" yaml:"connection_id,omitempty"`
	ConnectedAt   time.Time          `json:"connected_at,omitempty" yaml:"connected_at,omitempty"`
	LastAttemptAt time.Time          `json:"last_attempt_at,omitempty" yaml:"last_attempt_at,omitempty"`
	LastError     string             `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	LastErrorCode string             `json:"last_error_code,omitempty" yaml:"last_error_code,omitempty"`
}

// ConnectionManager owns the single gateway connection.
//
// State machine:
//
//	Disabled --Enable ok--> Enabled
//	Disabled --Enable fail--> Disabled
//	Enabled --Disable--> Disabled
//	Enabled --Enable--> (close old) --> Enable logic
type ConnectionManager struct {
	loader  CredentialLoader
	dialer  Dialer
	logger  *slog.Logger
	metrics Metrics
	now     func() time.Time

	// lifecycle serialises Enable and Disable.
	lifecycle sync.Mutex

	// mu guards the fields below. GetConnection and Status take the read
	// lock, so a handle is never closed while being handed out.
	mu          sync.RWMutex
	conn        Connection
	cfg         *domain.Config
	connectedAt time.Time
	lastAttempt time.Time
	lastErr     error
}

// ManagerOption configures a ConnectionManager.
type ManagerOption func(*ConnectionManager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *ConnectionManager) {
		m.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics Metrics) ManagerOption {
	return func(m *ConnectionManager) {
		m.metrics = metrics
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *ConnectionManager) {
		m.now = now
	}
}

// NewConnectionManager creates a disabled manager.
func NewConnectionManager(loader CredentialLoader, dialer Dialer, opts ...ManagerOption) *ConnectionManager {
	m := &ConnectionManager{
		loader:  loader,
		dialer:  dialer,
		logger:  slog.Default(),
		metrics: nopMetrics{},
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Enable builds a connection for cfg and holds it. Any connection held
// from a previous Enable is closed first.
//
// Failures are logged and returned as a DomainError coded
// InvalidConfiguration, CredentialLoad or ConnectionBuild; the manager is
// then disabled. Enable never panics on collaborator failures.
func (m *ConnectionManager) Enable(ctx context.Context, cfg domain.Config) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	start := m.now()

	if old := m.detach(); old != nil {
		m.logger.Info("closing previous gateway connection before re-enable",
			"connection_id", old.ID(),
		)
		m.closeConn(old)
	}

	m.mu.Lock()
	stored := cfg
	m.cfg = &stored
	m.lastAttempt = start
	m.mu.Unlock()

	conn, outcome, err := m.connect(ctx, cfg)

	m.mu.Lock()
	m.lastErr = err
	if err == nil {
		m.conn = conn
		m.connectedAt = m.now()
	}
	m.mu.Unlock()

	m.metrics.ObserveEnable(outcome, m.now().Sub(start))
	m.metrics.SetConnected(err == nil)

	if err != nil {
		m.logger.Error("failed to connect to gateway",
			"error", err,
			"error_code", domain.GetErrorCode(err),
			"environment", cfg.ResolvedEnvironment(),
			"identifier", cfg.Identifier,
			"credential_path", cfg.CredentialPath,
		)
		return err
	}

	m.logger.Info("gateway connection enabled",
		"connection_id", conn.ID(),
		"endpoint", conn.Endpoint().Address(),
		"environment", cfg.ResolvedEnvironment(),
		"identifier", cfg.Identifier,
	)
	return nil
}

// Reload runs Enable again with the most recently supplied config.
func (m *ConnectionManager) Reload(ctx context.Context) error {
	cfg, ok := m.Config()
	if !ok {
		return domain.ErrInvalidConfiguration.WithDetails("no configuration to reload")
	}
	return m.Enable(ctx, cfg)
}

// connect runs validation, credential loading and dialing. Panics from
// collaborators are converted into ConnectionBuild errors.
func (m *ConnectionManager) connect(ctx context.Context, cfg domain.Config) (conn Connection, outcome string, err error) {
	defer func() {
		if r := recover(); r != nil {
			conn = nil
			outcome = OutcomeConnectionBuild
			err = domain.ErrConnectionBuild.WithDetails(fmt.Sprintf("panic: %v", r))
		}
	}()

	if err := cfg.Validate(); err != nil {
		return nil, OutcomeInvalidConfiguration, err
	}

	endpoint := cfg.Endpoint()
	if !cfg.Environment.IsKnown() {
		m.logger.Warn("unrecognised environment, using development gateway",
			"environment", string(cfg.Environment),
			"endpoint", endpoint.Address(),
		)
	}

	cert, err := m.loader.Load(cfg.CredentialPath, cfg.Password())
	if err != nil {
		return nil, OutcomeCredentialLoad, domain.ErrCredentialLoad.
			WithDetails(cfg.CredentialPath).
			WithCause(err)
	}

	conn, err = m.dialer.Dial(ctx, endpoint, cert)
	if err != nil {
		return nil, OutcomeConnectionBuild, domain.ErrConnectionBuild.
			WithDetails(endpoint.Address()).
			WithCause(err)
	}
	if conn == nil {
		return nil, OutcomeConnectionBuild, domain.ErrConnectionBuild.
			WithDetails(endpoint.Address() + ": dialer returned no connection")
	}

	return conn, OutcomeSuccess, nil
}

// Disable closes the held connection, if any. It is idempotent.
func (m *ConnectionManager) Disable() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	conn := m.detach()
	if conn == nil {
		return
	}

	m.closeConn(conn)
	m.metrics.ObserveDisable()
	m.metrics.SetConnected(false)

	m.logger.Info("gateway connection disabled", "connection_id", conn.ID())
}

// GetConnection returns the live connection or ErrNotConnected.
// Every call returns the same connection until Disable or Enable.
func (m *ConnectionManager) GetConnection() (Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.conn == nil {
		return nil, domain.ErrNotConnected
	}
	return m.conn, nil
}

// Config returns the configuration passed to the last Enable.
func (m *ConnectionManager) Config() (domain.Config, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.cfg == nil {
		return domain.Config{}, false
	}
	return *m.cfg, true
}

// Status returns a snapshot of the manager state.
func (m *ConnectionManager) Status() ConnectionStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := ConnectionStatus{
		State:         StateDisabled,
		LastAttemptAt: m.lastAttempt,
	}
	if m.cfg != nil {
		status.Environment = m.cfg.ResolvedEnvironment()
		status.Identifier = m.cfg.Identifier
	}
	if m.lastErr != nil {
		status.LastError = m.lastErr.Error()
		status.LastErrorCode = domain.GetErrorCode(m.lastErr)
	}
	if m.conn != nil {
		ep := m.conn.Endpoint()
		status.State = StateEnabled
		status.Endpoint = &ep
		status.ConnectionID = m.conn.ID()
		status.ConnectedAt = m.connectedAt
	}
	return status
}

// detach removes the held connection under the write lock and returns it.
func (m *ConnectionManager) detach() Connection {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn := m.conn
	m.conn = nil
	m.connectedAt = time.Time{}
	return conn
}

func (m *ConnectionManager) closeConn(conn Connection) {
	if err := conn.Close(); err != nil {
		m.logger.Warn("error closing gateway connection",
			"connection_id", conn.ID(),
			"error", err,
		)
	}
}

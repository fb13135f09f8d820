package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Environment:        EnvironmentProduction,
		Identifier:         "com.example.app",
		CredentialPath:     "/etc/apnsconn/push.p12",
		CredentialPassword: "secret",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		wantField string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty password is fine", mutate: func(c *Config) { c.CredentialPassword = "" }},
		{name: "unknown environment is fine", mutate: func(c *Config) { c.Environment = "Staging" }},
		{name: "empty environment is fine", mutate: func(c *Config) { c.Environment = "" }},
		{name: "missing identifier", mutate: func(c *Config) { c.Identifier = "" }, wantErr: true, wantField: "identifier"},
		{name: "blank identifier", mutate: func(c *Config) { c.Identifier = "   " }, wantErr: true, wantField: "identifier"},
		{name: "missing credential path", mutate: func(c *Config) { c.CredentialPath = "" }, wantErr: true, wantField: "credential_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfiguration))
			assert.Contains(t, err.Error(), tt.wantField)
		})
	}
}

func TestConfig_Validate_ListsAllMissingFields(t *testing.T) {
	err := Config{}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identifier")
	assert.Contains(t, err.Error(), "credential_path")
}

func TestNewConfig_NilPasswordIsEmpty(t *testing.T) {
	cfg := NewConfig("Development", "com.example.app", "push.p12", nil)
	assert.Equal(t, "", cfg.Password())
	assert.False(t, cfg.HasPassword())

	secret := "secret"
	cfg = NewConfig("Production", "com.example.app", "push.p12", &secret)
	assert.Equal(t, "secret", cfg.Password())
	assert.True(t, cfg.HasPassword())
}

func TestConfig_Endpoint(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, Endpoint{Host: ProductionHost, Port: 443}, cfg.Endpoint())

	cfg.Environment = "anything"
	assert.Equal(t, EnvironmentDevelopment, cfg.ResolvedEnvironment())
	assert.Equal(t, Endpoint{Host: DevelopmentHost, Port: 443}, cfg.Endpoint())
}

func TestConfig_StringHidesPassword(t *testing.T) {
	cfg := validConfig()
	s := cfg.String()
	assert.False(t, strings.Contains(s, "secret"), "password leaked: %s", s)
	assert.Contains(t, s, "password_set=true")
	assert.Contains(t, s, "environment=Production")
}

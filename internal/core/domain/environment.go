package domain

import (
	"net"
	"strconv"
)

// Environment selects which gateway the connection is bound to.
type Environment string

const (
	EnvironmentProduction  Environment = "Production"
	EnvironmentDevelopment Environment = "Development"
)

// DefaultEnvironment is used when no environment is configured.
const DefaultEnvironment = EnvironmentDevelopment

// Gateway endpoints. These must match the real service byte-for-byte.
const (
	ProductionHost  = "api.push.apple.com"
	DevelopmentHost = "api.development.push.apple.com"
	GatewayPort     = 443
)

// ParseEnvironment maps a configuration value to an Environment.
// Only the exact string "Production" selects production; every other
// value, including the empty string, selects development.
func ParseEnvironment(s string) Environment {
	if s == string(EnvironmentProduction) {
		return EnvironmentProduction
	}
	return EnvironmentDevelopment
}

// IsKnown reports whether e is one of the two allowable values.
func (e Environment) IsKnown() bool {
	return e == EnvironmentProduction || e == EnvironmentDevelopment
}

// Endpoint is a gateway host and port.
type Endpoint struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

// ResolveEndpoint returns the gateway endpoint for env.
// Unrecognised values resolve to the development gateway.
func ResolveEndpoint(env Environment) Endpoint {
	if env == EnvironmentProduction {
		return Endpoint{Host: ProductionHost, Port: GatewayPort}
	}
	return Endpoint{Host: DevelopmentHost, Port: GatewayPort}
}

// Address returns host:port suitable for dialing.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// String implements fmt.Stringer.
func (e Endpoint) String() string {
	return e.Address()
}

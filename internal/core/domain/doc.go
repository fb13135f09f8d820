// Package domain defines the core domain models for apnsconn.
//
// Domain models are pure values without IO dependencies:
//
//   - Environment: gateway environment selector and its endpoint mapping
//   - Config: validated connection configuration
//   - Errors: coded domain errors (InvalidConfiguration, CredentialLoad,
//     ConnectionBuild, NotConnected)
package domain

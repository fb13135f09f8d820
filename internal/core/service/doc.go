// Package service provides domain services for apnsconn.
//
// Domain services contain the lifecycle logic and define interfaces for
// their infrastructure dependencies, allowing for dependency injection
// and testability.
//
// This package contains:
//
//   - ConnectionManager: enable/disable/lend the single gateway connection
//
// The manager performs no background work; all methods are synchronous
// and safe for concurrent use.
package service

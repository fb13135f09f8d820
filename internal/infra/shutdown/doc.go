// Package shutdown provides graceful shutdown handling.
//
// A Handler waits for SIGINT/SIGTERM (or an explicit Trigger) and runs
// the registered hooks in reverse registration order, so resources are
// released in the opposite order they were acquired. Each hook gets a
// context bounded by the handler timeout.
package shutdown

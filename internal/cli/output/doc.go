// Package output formats apnsconn-cli results.
//
// Results render as key/value tables by default, or as JSON or YAML for
// scripting. A terminal spinner covers slow steps such as dialing the
// gateway.
package output

// Package confloader provides the configuration loading mechanism.
//
// It is built on koanf and merges several sources into one typed struct.
//
// Priority (highest to lowest):
//
//  1. Explicit overrides (command-line flags, via LoadMap)
//  2. Environment variables (APNSCONN_SECTION_KEY)
//  3. Configuration file (YAML)
//  4. Default values already present in the target struct
//
// A Watcher reports changes to the configuration file so the host can
// apply runtime-adjustable settings without a restart.
package confloader

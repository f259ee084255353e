// Package confloader provides configuration loading mechanism.
//
// This package implements a configuration loader that supports multiple
// sources using koanf as the underlying library.
//
// Priority (highest to lowest):
//
//  1. Command-line flags (LoadMap)
//  2. Environment variables (OVECORE_ prefix)
//  3. Configuration file (YAML)
//  4. Values already present in the target struct
//
// The Watcher reports changes to the configuration file so that settings
// such as log.level can be reloaded without a restart.
package confloader

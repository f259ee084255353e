// Package config provides server configuration for OVE core.
//
// This package defines the server configuration structure and validation:
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Business validation (addresses, protocol, intervals)
//   - sanitize.go: Log sanitization (hide sensitive values)
//   - spaces.go: Loader for the spaces layout file
//   - peers.go: Conversion to peering transport settings
//
// Configuration is loaded via internal/infra/confloader and supports
// multiple sources: files, environment variables, and flags.
package config

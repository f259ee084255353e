// Package logger provides structured logging for OVE core.
//
// This package wraps log/slog:
//
//   - logger.go: handler configuration and the shared dynamic level
//   - context.go: context-aware logging with request IDs
//   - redact.go: sensitive data redaction
//
// Components receive a *slog.Logger; nothing in the module logs through a
// package-level logger other than slog.Default().
package logger

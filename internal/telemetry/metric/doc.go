// Package metric provides Prometheus metrics for OVE core.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Registry of counters and histograms, and the /metrics handler
//   - collector.go: Collector reporting live section, connection and socket counts
//
// A Registry is passed as the observer of the section service, the hub and
// the HTTP access middleware.
package metric

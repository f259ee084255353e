// Package main provides the entry point for ovecore-server.
//
// ovecore-server is one OVE core instance: it owns the spaces of a video
// wall, the sections laid out on them and the WebSocket hub that browsers
// on each display connect to. It provides:
//
//   - the REST API for sections, groups, spaces and connections
//   - the WebSocket endpoint at /ws with the clock handshake
//   - peer relaying over WebSocket links, Redis pub/sub or gossip discovery
//   - Prometheus metrics at /metrics
//
// Usage:
//
//	ovecore-server [flags]
//	ovecore-server --config /etc/ovecore/config.yaml
//	ovecore-server check-config --config /etc/ovecore/config.yaml
package main

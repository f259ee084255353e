// Package domain defines the core domain models for OVE core.
//
// Domain models are pure value objects and entities without any
// IO dependencies or framework coupling. This package contains:
//
//   - Rect, ClientRegion, ClientLayout: display and crop geometry
//   - Space: a named, static grid of client regions
//   - Section, App: content rectangles and their bound applications
//   - Group: named lists of section ids
//   - Connection: primary to secondary space replication links
//   - Envelope: the WebSocket wire message and its tagged variants
//   - Errors: domain error catalogue with stable reason strings
package domain

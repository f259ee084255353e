// Package handler provides HTTP request handlers for OVE core.
//
// This package contains handlers for all HTTP endpoints:
//
//   - section.go: Section CRUD, bulk delete, transform, moveTo, refresh
//   - group.go: Group CRUD
//   - connection.go: Replication connections, event and cache fan-out
//   - space.go: Space layouts and geometry
//   - health.go: Health and readiness checks
//
// All handlers follow a consistent pattern:
//
//   - Parse and validate request
//   - Call domain service
//   - Format and return response
//   - Handle errors as {"error": reason} with a status picked by error code
//
// Every mutation accepts ?override=true, which marks a call issued by a
// primary or peer instance and skips the replica ownership checks.
package handler

// Package service provides domain services for OVE core.
//
// Domain services contain the business logic of an instance and
// orchestrate operations on domain models. They define interfaces for
// storage and network dependencies, allowing for dependency injection and
// testability.
//
// This package contains:
//
//   - SectionService: the section and group registry operations
//   - ConnectionService: replication of sections from a primary space to
//     one or more secondary spaces, local or on remote instances
//
// Local state always commits before any application server, replica or
// peer is contacted. Outbound calls run in the background; their failures
// are logged and never fail the triggering request.
package service

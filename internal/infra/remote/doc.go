// Package remote provides the outbound HTTP clients of OVE core.
//
// AppClient talks to the application servers bound to sections.
// InstanceClient talks to other OVE core instances hosting secondary
// spaces; every call it makes carries override=true so that the receiving
// instance applies it without re-validating replica ownership.
//
// Both clients are safe for concurrent use. Callers bound each call with
// the context they pass in.
package remote

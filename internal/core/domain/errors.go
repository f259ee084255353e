// Package domain defines the core domain models for OVE core.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
//
// Message is the stable, machine-checkable reason returned to HTTP callers
// as {"error": Message}. Code is used internally to pick the HTTP status.
type DomainError struct {
	Code    string // Error code (e.g., "OVE-SECT-4001")
	Message string // Stable reason string
	Details string // Optional additional details (logged, never returned)
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Reason returns the stable reason string of a DomainError, or an empty
// string for any other error.
func Reason(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}

// ============================================================================
// Section Errors (SECT)
// ============================================================================

var (
	// ErrInvalidSpace indicates a missing or unknown space name.
	ErrInvalidSpace = NewDomainError("OVE-SECT-4001", "invalid space")

	// ErrInvalidDimensions indicates missing or out-of-range geometry.
	ErrInvalidDimensions = NewDomainError("OVE-SECT-4002", "invalid dimensions")

	// ErrInvalidApp indicates an app binding without a usable url.
	ErrInvalidApp = NewDomainError("OVE-SECT-4003", "invalid app configuration")

	// ErrInvalidSectionID indicates an unknown or deleted section id.
	ErrInvalidSectionID = NewDomainError("OVE-SECT-4004", "invalid section id")

	// ErrSecondarySection indicates a direct operation on a replica.
	ErrSecondarySection = NewDomainError("OVE-SECT-4005", "operation not allowed on secondary section")

	// ErrSecondarySpace indicates an operation against a space currently
	// acting as a replication secondary.
	ErrSecondarySpace = NewDomainError("OVE-SECT-4006", "operation not allowed on secondary space")
)

// ============================================================================
// Group Errors (GRP)
// ============================================================================

var (
	// ErrInvalidGroupID indicates an unknown or deleted group id.
	ErrInvalidGroupID = NewDomainError("OVE-GRP-4001", "invalid group id")
)

// ============================================================================
// Connection Errors (CONN)
// ============================================================================

var (
	// ErrInvalidConnection indicates a malformed or unknown connection.
	ErrInvalidConnection = NewDomainError("OVE-CONN-4001", "invalid connection")

	// ErrSpaceConnected indicates a space already participates in a connection.
	ErrSpaceConnected = NewDomainError("OVE-CONN-4002", "space already connected")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrBadRequest indicates a malformed request body or query.
	ErrBadRequest = NewDomainError("OVE-SYS-4000", "invalid request")

	// ErrInvalidOperation indicates a request whose parameters do not
	// describe any supported operation.
	ErrInvalidOperation = NewDomainError("OVE-SYS-4001", "invalid operation")

	// ErrRateLimited indicates a client exceeded its request rate.
	ErrRateLimited = NewDomainError("OVE-SYS-4290", "too many requests")

	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("OVE-SYS-5000", "internal server error")
)

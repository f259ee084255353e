// Package domain defines the core domain models for OVE core.
package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "error without details",
			err:      NewDomainError("OVE-TEST-1000", "test message"),
			expected: "[OVE-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewDomainError("OVE-TEST-1001", "test message").WithDetails("extra info"),
			expected: "[OVE-TEST-1001] test message: extra info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	err1 := NewDomainError("OVE-TEST-1000", "message 1")
	err2 := NewDomainError("OVE-TEST-1000", "message 2")
	err3 := NewDomainError("OVE-TEST-1001", "message 1")

	if !errors.Is(err1, err2) {
		t.Error("errors.Is should return true for same error code")
	}
	if errors.Is(err1, err3) {
		t.Error("errors.Is should return false for different error code")
	}
	if errors.Is(err1, fmt.Errorf("some error")) {
		t.Error("errors.Is should return false for non-DomainError")
	}
}

func TestDomainError_WithCause(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := ErrInvalidSpace.WithDetails("space: Nine").WithCause(cause)

	if ErrInvalidSpace.Cause != nil || ErrInvalidSpace.Details != "" {
		t.Error("WithDetails/WithCause should not modify the original error")
	}
	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), cause)
	}
	if !errors.Is(err, ErrInvalidSpace) {
		t.Error("errors.Is should work after chaining")
	}
}

func TestReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"domain error", ErrInvalidDimensions, "invalid dimensions"},
		{"wrapped", fmt.Errorf("op: %w", ErrSecondarySpace), "operation not allowed on secondary space"},
		{"detailed", ErrInvalidSectionID.WithDetails("id 4"), "invalid section id"},
		{"plain", errors.New("boom"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reason(tt.err); got != tt.want {
				t.Errorf("Reason() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsDomainError(t *testing.T) {
	if !IsDomainError(ErrInvalidGroupID, "OVE-GRP-4001") {
		t.Error("IsDomainError should return true for matching code")
	}
	if IsDomainError(ErrInvalidGroupID, "OVE-GRP-9999") {
		t.Error("IsDomainError should return false for non-matching code")
	}
	if !IsDomainError(fmt.Errorf("wrapped: %w", ErrInvalidApp), "") {
		t.Error("IsDomainError should work with wrapped errors")
	}
	if GetErrorCode(errors.New("x")) != "" {
		t.Error("GetErrorCode should be empty for plain errors")
	}
}

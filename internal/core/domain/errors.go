// Package domain defines the core domain models for PairHub.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
type DomainError struct {
	Code    string // Error code (e.g., "PH-TNT-4040")
	Message string // Human-readable message
	Details string // Optional additional details
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

// Wrap is shorthand for WithCause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
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

// ============================================================================
// Tenant Session Errors (TNT)
// ============================================================================

var (
	// ErrTenantNotFound indicates the tenant has no session.
	ErrTenantNotFound = NewDomainError("PH-TNT-4040", "tenant session not found")

	// ErrNotReady indicates the session exists but is not connected.
	ErrNotReady = NewDomainError("PH-TNT-4090", "tenant session not ready")

	// ErrAuthFailed indicates a fatal disconnect invalidated the credential.
	// The tenant has to pair again.
	ErrAuthFailed = NewDomainError("PH-TNT-4091", "authentication failed, pairing required")
)

// ============================================================================
// Credential Errors (CRED)
// ============================================================================

var (
	// ErrCredentialNotFound indicates no credential record exists for a tenant.
	ErrCredentialNotFound = NewDomainError("PH-CRED-4040", "credential not found")

	// ErrCredentialCorrupted indicates a stored record could not be decoded or opened.
	ErrCredentialCorrupted = NewDomainError("PH-CRED-5000", "credential record corrupted")
)

// ============================================================================
// Authentication Errors (AUTH)
// ============================================================================

var (
	// ErrAPIKeyMissing indicates no API key was provided.
	ErrAPIKeyMissing = NewDomainError("PH-AUTH-4010", "api key not provided")

	// ErrAPIKeyInvalid indicates the API key does not match.
	ErrAPIKeyInvalid = NewDomainError("PH-AUTH-4011", "invalid api key")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternal indicates an internal server error.
	ErrInternal = NewDomainError("PH-SYS-5000", "internal server error")

	// ErrUnknown indicates an unclassified protocol client error.
	ErrUnknown = NewDomainError("PH-SYS-5020", "protocol client error")

	// ErrStoreUnavailable indicates the credential backend cannot be reached.
	ErrStoreUnavailable = NewDomainError("PH-SYS-5030", "credential store unavailable")

	// ErrServiceUnavailable indicates the registry is shutting down.
	ErrServiceUnavailable = NewDomainError("PH-SYS-5031", "service unavailable")

	// ErrTimeout indicates a readiness wait or teardown step exceeded its bound.
	ErrTimeout = NewDomainError("PH-SYS-5040", "operation timed out")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("PH-SYS-4000", "bad request")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("PH-SYS-4290", "too many requests")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("PH-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("PH-ARG-1002", "missing required argument")
)

package domain

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
)

var codePattern = regexp.MustCompile(`^PH-(TNT|CRED|AUTH|SYS|ARG)-\d{4}$`)

func allErrors() []*DomainError {
	return []*DomainError{
		ErrTenantNotFound, ErrNotReady, ErrAuthFailed,
		ErrCredentialNotFound, ErrCredentialCorrupted,
		ErrAPIKeyMissing, ErrAPIKeyInvalid,
		ErrInternal, ErrUnknown, ErrStoreUnavailable, ErrServiceUnavailable,
		ErrTimeout, ErrBadRequest, ErrRateLimited,
		ErrInvalidArgument, ErrMissingArgument,
	}
}

func TestErrorCodes_UniqueAndWellFormed(t *testing.T) {
	seen := make(map[string]string)
	for _, e := range allErrors() {
		if !codePattern.MatchString(e.Code) {
			t.Errorf("code %q does not match %s", e.Code, codePattern)
		}
		if e.Message == "" {
			t.Errorf("%s has no message", e.Code)
		}
		if prev, ok := seen[e.Code]; ok {
			t.Errorf("code %s used by %q and %q", e.Code, prev, e.Message)
		}
		seen[e.Code] = e.Message
	}
}

// The caller-facing conditions each have their own code.
func TestTaxonomy(t *testing.T) {
	tests := []struct {
		condition string
		err       *DomainError
		code      string
	}{
		{"tenant has no session", ErrTenantNotFound, "PH-TNT-4040"},
		{"session not connected", ErrNotReady, "PH-TNT-4090"},
		{"credential invalidated", ErrAuthFailed, "PH-TNT-4091"},
		{"readiness or teardown bound exceeded", ErrTimeout, "PH-SYS-5040"},
		{"credential backend unreachable", ErrStoreUnavailable, "PH-SYS-5030"},
		{"unclassified protocol error", ErrUnknown, "PH-SYS-5020"},
	}

	for _, tt := range tests {
		t.Run(tt.condition, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("code = %s, want %s", tt.err.Code, tt.code)
			}
		})
	}
}

func TestDomainError_MatchesByCode(t *testing.T) {
	detailed := ErrTenantNotFound.WithDetails("tenant_id: shop-1")
	if !errors.Is(detailed, ErrTenantNotFound) {
		t.Error("details must not change identity")
	}
	if errors.Is(detailed, ErrNotReady) {
		t.Error("different codes must not match")
	}
	if ErrTenantNotFound.Details != "" {
		t.Error("WithDetails modified the sentinel")
	}

	wrapped := fmt.Errorf("status shop-1: %w", detailed)
	if got := GetErrorCode(wrapped); got != "PH-TNT-4040" {
		t.Errorf("GetErrorCode() = %q through fmt wrapping", got)
	}
	if !IsDomainError(wrapped, "") || IsDomainError(wrapped, "PH-TNT-4090") {
		t.Error("IsDomainError matched the wrong code")
	}
	if GetErrorCode(errors.New("plain")) != "" || GetErrorCode(nil) != "" {
		t.Error("non-domain errors have no code")
	}
}

// A wait abandoned by its caller reports NotReady while the context error
// stays reachable.
func TestDomainError_CauseChain(t *testing.T) {
	err := ErrNotReady.WithDetails("wait abandoned").WithCause(context.DeadlineExceeded)

	if !errors.Is(err, ErrNotReady) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("chain lost: %v", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("an abandoned wait is not a readiness timeout")
	}
	if want := "[PH-TNT-4090] tenant session not ready: wait abandoned"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	var de *DomainError
	if !errors.As(fmt.Errorf("login: %w", err), &de) || de.Details != "wait abandoned" {
		t.Errorf("errors.As() = %+v", de)
	}
	if ErrAuthFailed.Wrap(nil).Unwrap() != nil {
		t.Error("Unwrap() of a causeless error must be nil")
	}
	if got := ErrCredentialCorrupted.Error(); got != "[PH-CRED-5000] credential record corrupted" {
		t.Errorf("Error() = %q", got)
	}
}

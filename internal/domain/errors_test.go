package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil error", nil, ""},
		{"domain error", Invalid("op", "bad input"), EINVALID},
		{"wrapped domain error", fmt.Errorf("outer: %w", NotFound("op", "user", "123")), ENOTFOUND},
		{"plain error defaults to internal", errors.New("boom"), EINTERNAL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorCode(tt.err); got != tt.want {
				t.Errorf("ErrorCode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorMessageHidesInternals(t *testing.T) {
	internal := Internal(errors.New("pq: connection refused"), "op", "Failed to load user")

	msg := ErrorMessage(internal)
	if msg == "Failed to load user" {
		t.Error("internal message should collapse to the generic message")
	}
	if msg == "pq: connection refused" {
		t.Error("underlying error must never leak to the caller")
	}
}

func TestErrorMessageSurfacesClientErrors(t *testing.T) {
	err := Conflict("entitlement.redeem", "Your PRO access is still active")
	if got := ErrorMessage(err); got != "Your PRO access is still active" {
		t.Errorf("ErrorMessage() = %q", got)
	}
}

func TestQuotaExceeded(t *testing.T) {
	err := QuotaExceeded("quota.check", 3, 3)

	if ErrorCode(err) != ERATELIMIT {
		t.Errorf("code = %q, want %q", ErrorCode(err), ERATELIMIT)
	}
	if ErrorOp(err) != "quota.check" {
		t.Errorf("op = %q, want quota.check", ErrorOp(err))
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(cause, EINTERNAL, "op", "wrapped")

	if !errors.Is(err, cause) {
		t.Error("wrapped error should unwrap to its cause")
	}
}

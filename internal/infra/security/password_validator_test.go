package security

import (
	"errors"
	"strings"
	"testing"

	zxcvbn "github.com/nbutton23/zxcvbn-go"

	"github.com/Korabi-dev/password-reset-adds/internal/core/domain"
)

func TestPasswordPolicyDefaultsArePermissive(t *testing.T) {
	policy := NewPasswordPolicy(PasswordPolicySettings{})

	if err := policy.Validate("x", "alice", "alice@x.com"); err != nil {
		t.Fatalf("expected single character password to pass defaults, got %v", err)
	}
	if err := policy.Validate("alice", "alice", "alice@x.com"); err != nil {
		t.Fatalf("expected username reuse to pass when strength checks are disabled, got %v", err)
	}
}

func TestPasswordPolicyViolations(t *testing.T) {
	policy := NewPasswordPolicy(PasswordPolicySettings{MinLength: 8, MaxLength: 64, MinScore: 3})

	assertViolation := func(password, expectedCode string) {
		t.Helper()
		err := policy.Validate(password, "alice", "alice@x.com")
		if err == nil {
			t.Fatalf("expected validation error for %s", expectedCode)
		}
		if !errors.Is(err, domain.ErrWeakPassword) {
			t.Fatalf("expected ErrWeakPassword, got %v", err)
		}
		var vErr *PasswordValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected PasswordValidationError, got %T", err)
		}
		if vErr.Code != expectedCode {
			t.Fatalf("expected %s code, got %s", expectedCode, vErr.Code)
		}
	}

	assertViolation("Short1!", "min_length")
	assertViolation(strings.Repeat("a", 65), "max_length")
	assertViolation("ALICE@X.COM", "different")
	assertViolation("Password123", "weak_password")
}

func TestPasswordPolicyStrongPassword(t *testing.T) {
	policy := NewPasswordPolicy(PasswordPolicySettings{MinLength: 10, MinScore: 3})

	password := "C0mplex!Passphrase#2025"
	if strength := zxcvbn.PasswordStrength(password, nil); strength.Score < 3 {
		t.Fatalf("test password unexpectedly weak: score=%d", strength.Score)
	}
	if err := policy.Validate(password, "alice", "alice@x.com"); err != nil {
		t.Fatalf("expected password to pass validation, got %v", err)
	}
}

func TestCustomPasswordValidator(t *testing.T) {
	validator := NewPasswordValidator(
		MinLengthRule(4),
		RequireDifferentFrom("existing"),
	)

	if err := validator.Validate("existing"); err == nil {
		t.Fatalf("expected validation error when new password equals comparator")
	}
	if err := validator.Validate("abc"); err == nil {
		t.Fatalf("expected validation error for short password")
	}
	if err := validator.Validate("diff!"); err != nil {
		t.Fatalf("expected password to pass custom validation, got %v", err)
	}
}

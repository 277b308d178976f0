package security

import (
	"github.com/Korabi-dev/password-reset-adds/internal/core/port"
)

const (
	defaultMinPasswordLength = 1
	defaultMaxPasswordLength = 128
)

// PasswordPolicySettings tunes the policy applied to new passwords.
type PasswordPolicySettings struct {
	MinLength int
	MaxLength int
	MinScore  int
}

// PasswordPolicy validates new passwords against length bounds and, when a
// minimum score is configured, zxcvbn strength using the account identity as hints.
type PasswordPolicy struct {
	settings PasswordPolicySettings
}

// NewPasswordPolicy builds a policy, falling back to permissive defaults for unset bounds.
func NewPasswordPolicy(settings PasswordPolicySettings) *PasswordPolicy {
	if settings.MinLength <= 0 {
		settings.MinLength = defaultMinPasswordLength
	}
	if settings.MaxLength <= 0 {
		settings.MaxLength = defaultMaxPasswordLength
	}
	return &PasswordPolicy{settings: settings}
}

// Validate applies the configured rules. Violations unwrap to domain.ErrWeakPassword.
func (p *PasswordPolicy) Validate(password string, username, email string) error {
	rules := []PasswordRule{
		MinLengthRule(p.settings.MinLength),
		MaxLengthRule(p.settings.MaxLength),
	}
	if p.settings.MinScore > 0 {
		rules = append(rules,
			RequireDifferentFrom(username, email),
			RequirePasswordStrengthRule(p.settings.MinScore, username, email),
		)
	}
	return NewPasswordValidator(rules...).Validate(password)
}

var _ port.PasswordPolicyValidator = (*PasswordPolicy)(nil)

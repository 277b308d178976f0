package port

import "context"

// PasswordPolicyValidator enforces password strength requirements.
type PasswordPolicyValidator interface {
	Validate(password string, username, email string) error
}

// PasswordChanger applies a new password to the underlying account system.
type PasswordChanger interface {
	ChangePassword(ctx context.Context, username, newPassword string) error
}

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates malformed input; the wrapped message is safe to show to callers.
	ErrValidation = errors.New("validation failed")
	// ErrUserNotFound indicates no user matches the supplied email and username.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists indicates the username or email is already provisioned.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrDuplicateRequest indicates an outstanding code already exists for the user, email or code.
	ErrDuplicateRequest = errors.New("duplicate reset request")
	// ErrInvalidCode indicates the presented code is unknown or already consumed.
	ErrInvalidCode = errors.New("reset code invalid")
	// ErrCodeEmailMismatch indicates the code exists but belongs to another email.
	ErrCodeEmailMismatch = fmt.Errorf("%w: email mismatch", ErrInvalidCode)
	// ErrCodeExpired indicates the code outlived the expiry window.
	ErrCodeExpired = errors.New("reset code expired")

	// ErrAuth groups shared-secret failures.
	ErrAuth = errors.New("authorization failed")
	// ErrMissingToken indicates the authorization header was not supplied.
	ErrMissingToken = fmt.Errorf("%w: missing token", ErrAuth)
	// ErrInvalidToken indicates the authorization header does not match the shared secret.
	ErrInvalidToken = fmt.Errorf("%w: invalid token", ErrAuth)

	// ErrMissingClientID indicates no client identifier could be derived from the request.
	ErrMissingClientID = errors.New("missing client identifier")
	// ErrRateLimited indicates the client exhausted its request quota.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrWeakPassword indicates the new password was rejected by the password policy.
	ErrWeakPassword = errors.New("new password rejected by policy")

	// ErrExternalCommand groups password-change command failures.
	ErrExternalCommand = errors.New("password change command failed")
	// ErrPasswordChangeFailed indicates the command reported on its error stream.
	ErrPasswordChangeFailed = fmt.Errorf("%w: error output", ErrExternalCommand)
	// ErrPasswordCommandStart indicates the command could not be spawned.
	ErrPasswordCommandStart = fmt.Errorf("%w: start", ErrExternalCommand)
	// ErrPasswordCommandExit indicates the command exited with a non-zero status.
	ErrPasswordCommandExit = fmt.Errorf("%w: non-zero exit", ErrExternalCommand)
	// ErrPasswordCommandUnconfirmed indicates a clean exit without the success marker.
	ErrPasswordCommandUnconfirmed = fmt.Errorf("%w: no success marker", ErrExternalCommand)
	// ErrPasswordCommandTimeout indicates the command was killed after the configured timeout.
	ErrPasswordCommandTimeout = fmt.Errorf("%w: timeout", ErrExternalCommand)

	// ErrUnknown wraps storage or transport failures whose detail must not reach callers.
	ErrUnknown = errors.New("unknown error")
)

// ValidationError carries the first failing input rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Unwrap lets callers match ErrValidation with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

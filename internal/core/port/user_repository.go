package port

import (
	"context"

	"github.com/Korabi-dev/password-reset-adds/internal/core/domain"
)

// UserRepository exposes persistence behavior for provisioned users.
type UserRepository interface {
	// FindByEmailAndUsername returns repository.ErrNotFound unless both fields match one record.
	FindByEmailAndUsername(ctx context.Context, email, username string) (*domain.User, error)
	// Create returns repository.ErrDuplicate when the username or email is already taken.
	Create(ctx context.Context, user domain.User) error
	// Delete returns repository.ErrNotFound when no record matches the pair.
	Delete(ctx context.Context, email, username string) error
}

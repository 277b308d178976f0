package port

import (
	"context"

	"github.com/Korabi-dev/password-reset-adds/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishCodeIssued(ctx context.Context, event domain.CodeIssuedEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishUserLifecycle(ctx context.Context, event domain.UserLifecycleEvent) error
}

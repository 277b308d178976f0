package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Korabi-dev/password-reset-adds/internal/core/domain"
	"github.com/Korabi-dev/password-reset-adds/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, username string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("username", username),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishCodeIssued logs resetd.code.issued events.
func (p *StubPublisher) PublishCodeIssued(_ context.Context, event domain.CodeIssuedEvent) error {
	p.logEvent(domain.EventCodeIssued, event.Username, event.IssuedAt, map[string]any{
		"masked_email": event.MaskedEmail,
		"expires_at":   event.ExpiresAt,
		"metadata":     event.Metadata,
	})
	return nil
}

// PublishPasswordChanged logs resetd.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.logEvent(domain.EventPasswordChanged, event.Username, event.ChangedAt, map[string]any{
		"masked_email": event.MaskedEmail,
		"metadata":     event.Metadata,
	})
	return nil
}

// PublishUserLifecycle logs resetd.user.created and resetd.user.deleted events.
func (p *StubPublisher) PublishUserLifecycle(_ context.Context, event domain.UserLifecycleEvent) error {
	p.logEvent(event.Type, event.Username, event.OccurredAt, map[string]any{
		"masked_email": event.MaskedEmail,
	})
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)

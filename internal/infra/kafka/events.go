package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Korabi-dev/password-reset-adds/internal/core/domain"
	"github.com/Korabi-dev/password-reset-adds/internal/core/port"
	"github.com/Korabi-dev/password-reset-adds/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	Username  string           `json:"username,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

// publish wraps payload in the versioned envelope. Messages are keyed by username
// so one account's events stay ordered within a partition.
func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, username string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		Username:  username,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(username),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishCodeIssued publishes resetd.code.issued events.
func (p *EventPublisher) PublishCodeIssued(ctx context.Context, event domain.CodeIssuedEvent) error {
	payload := struct {
		Username    string         `json:"username"`
		MaskedEmail string         `json:"masked_email"`
		IssuedAt    time.Time      `json:"issued_at"`
		ExpiresAt   time.Time      `json:"expires_at"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		Username:    event.Username,
		MaskedEmail: event.MaskedEmail,
		IssuedAt:    event.IssuedAt.UTC(),
		ExpiresAt:   event.ExpiresAt.UTC(),
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, domain.EventCodeIssued, event.Username, event.IssuedAt, payload)
}

// PublishPasswordChanged publishes resetd.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	payload := struct {
		Username    string         `json:"username"`
		MaskedEmail string         `json:"masked_email"`
		ChangedAt   time.Time      `json:"changed_at"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		Username:    event.Username,
		MaskedEmail: event.MaskedEmail,
		ChangedAt:   event.ChangedAt.UTC(),
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, domain.EventPasswordChanged, event.Username, event.ChangedAt, payload)
}

// PublishUserLifecycle publishes resetd.user.created and resetd.user.deleted events.
func (p *EventPublisher) PublishUserLifecycle(ctx context.Context, event domain.UserLifecycleEvent) error {
	payload := struct {
		Username    string    `json:"username"`
		MaskedEmail string    `json:"masked_email"`
		OccurredAt  time.Time `json:"occurred_at"`
	}{
		Username:    event.Username,
		MaskedEmail: event.MaskedEmail,
		OccurredAt:  event.OccurredAt.UTC(),
	}

	return p.publish(ctx, event.EventID, event.Type, event.Username, event.OccurredAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)

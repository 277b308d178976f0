package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Korabi-dev/password-reset-adds/internal/core/domain"
	"github.com/Korabi-dev/password-reset-adds/internal/core/port"
	"github.com/Korabi-dev/password-reset-adds/internal/infra/logger"
	"github.com/Korabi-dev/password-reset-adds/internal/repository"
)

// UserService provisions the accounts allowed to request reset codes.
type UserService struct {
	users  port.UserRepository
	events port.EventPublisher
	logger *zap.Logger
	rules  domain.InputRules
	now    func() time.Time
}

// NewUserService constructs UserService. events may be nil.
func NewUserService(users port.UserRepository, events port.EventPublisher, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{
		users:  users,
		events: events,
		logger: log,
		rules:  domain.DefaultInputRules,
		now:    time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *UserService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// CreateUser registers the username/email pair. Either value already being taken yields ErrUserAlreadyExists.
func (s *UserService) CreateUser(ctx context.Context, email, username string) error {
	if err := s.rules.Validate(domain.Fields{Email: email, Username: username}); err != nil {
		return err
	}

	existing, err := s.users.FindByEmailAndUsername(ctx, email, username)
	switch {
	case err == nil && existing != nil:
		return domain.ErrUserAlreadyExists
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: lookup user: %w", domain.ErrUnknown, err)
	}

	user := domain.User{
		Username:  username,
		Email:     email,
		CreatedAt: s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.ErrUserAlreadyExists
		}
		return fmt.Errorf("%w: create user: %w", domain.ErrUnknown, err)
	}

	s.logger.Info("user created", append(logger.ContextFields(ctx),
		zap.String("username", username),
		zap.String("email", logger.MaskEmail(email)),
	)...)
	s.publish(ctx, domain.EventUserCreated, user)
	return nil
}

// DeleteUser removes the user matching both email and username.
func (s *UserService) DeleteUser(ctx context.Context, email, username string) error {
	if err := s.rules.Validate(domain.Fields{Email: email, Username: username}); err != nil {
		return err
	}

	if err := s.users.Delete(ctx, email, username); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("%w: delete user: %w", domain.ErrUnknown, err)
	}

	s.logger.Info("user deleted", append(logger.ContextFields(ctx),
		zap.String("username", username),
		zap.String("email", logger.MaskEmail(email)),
	)...)
	s.publish(ctx, domain.EventUserDeleted, domain.User{Username: username, Email: email})
	return nil
}

func (s *UserService) publish(ctx context.Context, eventType string, user domain.User) {
	if s.events == nil {
		return
	}

	event := domain.UserLifecycleEvent{
		EventID:     uuid.NewString(),
		Type:        eventType,
		Username:    user.Username,
		MaskedEmail: logger.MaskEmail(user.Email),
		OccurredAt:  s.now().UTC(),
	}
	if err := s.events.PublishUserLifecycle(ctx, event); err != nil {
		s.logger.Warn("publish user lifecycle event failed", zap.String("event_type", eventType), zap.Error(err))
	}
}

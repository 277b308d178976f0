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
	"github.com/Korabi-dev/password-reset-adds/internal/infra/config"
	"github.com/Korabi-dev/password-reset-adds/internal/infra/logger"
	"github.com/Korabi-dev/password-reset-adds/internal/infra/security"
	"github.com/Korabi-dev/password-reset-adds/internal/infra/telemetry"
	"github.com/Korabi-dev/password-reset-adds/internal/repository"
)

const defaultExpiry = 300 * time.Second

// ResetService issues, validates and redeems reset codes.
type ResetService struct {
	users     port.UserRepository
	codes     port.CodeRepository
	notifier  port.Notifier
	changer   port.PasswordChanger
	policy    port.PasswordPolicyValidator
	events    port.EventPublisher
	metrics   port.ResetMetrics
	logger    *zap.Logger
	rules     domain.InputRules
	expiry    time.Duration
	maxMisses int
	subject   string
	template  string
	generate  func(length int) (string, error)
	now       func() time.Time
}

// IssueResult describes a code that was stored and delivered.
type IssueResult struct {
	Username  string
	ExpiresAt time.Time
}

// ResetPasswordInput carries the payload of a code redemption.
type ResetPasswordInput struct {
	Code        string
	Email       string
	Username    string
	NewPassword string
}

// NewResetService constructs a ResetService. events, metrics and policy may be nil.
func NewResetService(cfg *config.AppConfig, users port.UserRepository, codes port.CodeRepository, notifier port.Notifier, changer port.PasswordChanger, policy port.PasswordPolicyValidator, events port.EventPublisher, metrics port.ResetMetrics, log *zap.Logger) *ResetService {
	if log == nil {
		log = zap.NewNop()
	}

	s := &ResetService{
		users:    users,
		codes:    codes,
		notifier: notifier,
		changer:  changer,
		policy:   policy,
		events:   events,
		metrics:  metrics,
		logger:   log,
		rules:    domain.DefaultInputRules,
		expiry:   defaultExpiry,
		generate: security.GenerateNumericCode,
		now:      time.Now,
	}

	if cfg != nil {
		if cfg.Reset.ExpirySeconds > 0 {
			s.expiry = cfg.Reset.Expiry()
		}
		if cfg.Reset.CodeLength > 0 {
			s.rules = domain.InputRules{CodeLength: cfg.Reset.CodeLength}
		}
		s.maxMisses = cfg.Reset.MaxMismatches
		s.subject = cfg.Mail.Subject
		s.template = cfg.Mail.HTMLTemplate
	}

	return s
}

// WithClock allows tests to override the clock used by the service.
func (s *ResetService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// WithGenerator allows tests to control generated codes.
func (s *ResetService) WithGenerator(generate func(length int) (string, error)) {
	if generate != nil {
		s.generate = generate
	}
}

// Expiry returns the configured validity window.
func (s *ResetService) Expiry() time.Duration {
	return s.expiry
}

// RequestCode issues a code for the user identified by email and username and emails it.
// A delivery failure is reported as domain.ErrUnknown; the stored record is kept and expires normally.
func (s *ResetService) RequestCode(ctx context.Context, email, username string) (*IssueResult, error) {
	if err := s.rules.Validate(domain.Fields{Email: email, Username: username}); err != nil {
		return nil, err
	}
	log := s.logger.With(logger.ContextFields(ctx)...).With(
		zap.String("username", username),
		zap.String("email", logger.MaskEmail(email)),
	)

	if _, err := s.lookupUser(ctx, email, username); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.recordIssue(telemetry.ResultUserNotFound)
		} else {
			s.recordIssue(telemetry.ResultError)
		}
		return nil, err
	}

	code, err := s.generate(s.rules.CodeLength)
	if err != nil {
		s.recordIssue(telemetry.ResultError)
		return nil, fmt.Errorf("%w: generate code: %w", domain.ErrUnknown, err)
	}

	conflict, err := s.codes.FindConflict(ctx, username, email, code)
	switch {
	case err == nil && conflict != nil:
		s.recordIssue(telemetry.ResultDuplicate)
		return nil, domain.ErrDuplicateRequest
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		s.recordIssue(telemetry.ResultError)
		return nil, fmt.Errorf("%w: find conflicting code: %w", domain.ErrUnknown, err)
	}

	issuedAt := s.now().UTC()
	record := domain.ResetCode{
		Code:     code,
		Email:    email,
		Username: username,
		IssuedAt: issuedAt,
	}
	if err := s.codes.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.recordIssue(telemetry.ResultDuplicate)
			return nil, domain.ErrDuplicateRequest
		}
		s.recordIssue(telemetry.ResultError)
		return nil, fmt.Errorf("%w: store code: %w", domain.ErrUnknown, err)
	}

	body := RenderTemplate(s.template, code, s.expiry)
	if err := s.notifier.Send(ctx, email, s.subject, body); err != nil {
		log.Error("reset code delivery failed", zap.Error(err))
		s.recordIssue(telemetry.ResultMailFailed)
		return nil, fmt.Errorf("%w: deliver code: %w", domain.ErrUnknown, err)
	}

	expiresAt := record.ExpiresAt(s.expiry)
	log.Info("reset code issued", zap.Time("expires_at", expiresAt))
	s.recordIssue(telemetry.ResultIssued)
	s.publishCodeIssued(ctx, record, expiresAt)

	return &IssueResult{Username: username, ExpiresAt: expiresAt}, nil
}

// ValidateCode consumes code when it belongs to email and is still fresh.
//
// An email mismatch leaves the record in place unless a mismatch limit is configured,
// in which case the record is removed once the limit is reached. Expired codes are
// removed. Only the caller whose delete actually removed the record succeeds.
func (s *ResetService) ValidateCode(ctx context.Context, email, code string) error {
	if err := s.rules.Validate(domain.Fields{Email: email, Code: code}); err != nil {
		return err
	}

	record, err := s.codes.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.recordValidation(telemetry.ResultInvalid)
			return domain.ErrInvalidCode
		}
		s.recordValidation(telemetry.ResultError)
		return fmt.Errorf("%w: find code: %w", domain.ErrUnknown, err)
	}

	if record.Email != email {
		s.recordValidation(telemetry.ResultMismatch)
		s.recordMismatch(ctx, record.Code)
		return domain.ErrCodeEmailMismatch
	}

	if record.IsExpired(s.now().UTC(), s.expiry) {
		if _, err := s.codes.DeleteByCode(ctx, record.Code); err != nil {
			s.logger.Warn("delete expired code failed", append(logger.ContextFields(ctx), zap.Error(err))...)
		}
		s.recordValidation(telemetry.ResultExpired)
		return domain.ErrCodeExpired
	}

	deleted, err := s.codes.DeleteByCode(ctx, record.Code)
	if err != nil {
		s.recordValidation(telemetry.ResultError)
		return fmt.Errorf("%w: consume code: %w", domain.ErrUnknown, err)
	}
	if !deleted {
		s.recordValidation(telemetry.ResultInvalid)
		return domain.ErrInvalidCode
	}

	s.recordValidation(telemetry.ResultValid)
	return nil
}

// ResetPassword checks the user and the new password, consumes the code and runs the password command.
// The new password is checked before the code is consumed so a rejected password does not burn it.
func (s *ResetService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	if err := s.rules.Validate(domain.Fields{Code: input.Code, Email: input.Email, Username: input.Username}); err != nil {
		return err
	}

	if _, err := s.lookupUser(ctx, input.Email, input.Username); err != nil {
		return err
	}

	if s.policy != nil {
		if err := s.policy.Validate(input.NewPassword, input.Username, input.Email); err != nil {
			s.recordPasswordChange(telemetry.ResultRejected)
			return err
		}
	}

	if err := s.ValidateCode(ctx, input.Email, input.Code); err != nil {
		return err
	}

	log := s.logger.With(logger.ContextFields(ctx)...).With(zap.String("username", input.Username))
	if err := s.changer.ChangePassword(ctx, input.Username, input.NewPassword); err != nil {
		log.Warn("password change failed", zap.Error(err))
		s.recordPasswordChange(telemetry.ResultFailed)
		return err
	}

	changedAt := s.now().UTC()
	log.Info("password changed")
	s.recordPasswordChange(telemetry.ResultChanged)
	s.publishPasswordChanged(ctx, input.Username, input.Email, changedAt)
	return nil
}

func (s *ResetService) lookupUser(ctx context.Context, email, username string) (*domain.User, error) {
	user, err := s.users.FindByEmailAndUsername(ctx, email, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: lookup user: %w", domain.ErrUnknown, err)
	}
	return user, nil
}

func (s *ResetService) recordMismatch(ctx context.Context, code string) {
	if s.maxMisses <= 0 {
		return
	}

	count, err := s.codes.IncrementMismatches(ctx, code)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("record code mismatch failed", append(logger.ContextFields(ctx), zap.Error(err))...)
		}
		return
	}
	if count < s.maxMisses {
		return
	}

	if _, err := s.codes.DeleteByCode(ctx, code); err != nil {
		s.logger.Warn("discard code after mismatches failed", append(logger.ContextFields(ctx), zap.Error(err))...)
		return
	}
	s.logger.Info("code discarded after repeated email mismatches", append(logger.ContextFields(ctx), zap.Int("mismatches", count))...)
}

func (s *ResetService) publishCodeIssued(ctx context.Context, record domain.ResetCode, expiresAt time.Time) {
	if s.events == nil {
		return
	}

	event := domain.CodeIssuedEvent{
		EventID:     uuid.NewString(),
		Username:    record.Username,
		MaskedEmail: logger.MaskEmail(record.Email),
		IssuedAt:    record.IssuedAt,
		ExpiresAt:   expiresAt,
	}
	if err := s.events.PublishCodeIssued(ctx, event); err != nil {
		s.logger.Warn("publish code issued failed", zap.String("username", record.Username), zap.Error(err))
	}
}

func (s *ResetService) publishPasswordChanged(ctx context.Context, username, email string, changedAt time.Time) {
	if s.events == nil {
		return
	}

	event := domain.PasswordChangedEvent{
		EventID:     uuid.NewString(),
		Username:    username,
		MaskedEmail: logger.MaskEmail(email),
		ChangedAt:   changedAt,
	}
	if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
		s.logger.Warn("publish password changed failed", zap.String("username", username), zap.Error(err))
	}
}

func (s *ResetService) recordIssue(result string) {
	if s.metrics != nil {
		s.metrics.CodeIssued(result)
	}
}

func (s *ResetService) recordValidation(result string) {
	if s.metrics != nil {
		s.metrics.CodeValidated(result)
	}
}

func (s *ResetService) recordPasswordChange(result string) {
	if s.metrics != nil {
		s.metrics.PasswordChanged(result)
	}
}

package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Korabi-dev/password-reset-adds/internal/core/domain"
	"github.com/Korabi-dev/password-reset-adds/internal/repository"
)

type userRepoFake struct {
	mu      sync.Mutex
	users   []domain.User
	findErr error
}

func (f *userRepoFake) FindByEmailAndUsername(_ context.Context, email, username string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, u := range f.users {
		if u.Email == email && u.Username == username {
			user := u
			return &user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *userRepoFake) Create(_ context.Context, user domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email || u.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	f.users = append(f.users, user)
	return nil
}

func (f *userRepoFake) Delete(_ context.Context, email, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, u := range f.users {
		if u.Email == email && u.Username == username {
			f.users = append(f.users[:i], f.users[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *userRepoFake) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

type codeRepoFake struct {
	mu        sync.Mutex
	codes     map[string]domain.ResetCode
	createErr error
	sweptAt   time.Time
}

func newCodeRepoFake() *codeRepoFake {
	return &codeRepoFake{codes: make(map[string]domain.ResetCode)}
}

func (f *codeRepoFake) Create(_ context.Context, code domain.ResetCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, c := range f.codes {
		if c.Code == code.Code || c.Email == code.Email || c.Username == code.Username {
			return repository.ErrDuplicate
		}
	}
	f.codes[code.Code] = code
	return nil
}

func (f *codeRepoFake) FindByCode(_ context.Context, code string) (*domain.ResetCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.codes[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (f *codeRepoFake) FindConflict(_ context.Context, username, email, code string) (*domain.ResetCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.codes {
		if c.Username == username || c.Email == email || c.Code == code {
			found := c
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *codeRepoFake) DeleteByCode(_ context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.codes[code]; !ok {
		return false, nil
	}
	delete(f.codes, code)
	return true, nil
}

func (f *codeRepoFake) IncrementMismatches(_ context.Context, code string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.codes[code]
	if !ok {
		return 0, repository.ErrNotFound
	}
	c.Mismatches++
	f.codes[code] = c
	return c.Mismatches, nil
}

func (f *codeRepoFake) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweptAt = cutoff
	var removed int64
	for key, c := range f.codes {
		if c.IssuedAt.Before(cutoff) {
			delete(f.codes, key)
			removed++
		}
	}
	return removed, nil
}

func (f *codeRepoFake) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.codes)
}

type sentMail struct {
	to      string
	subject string
	html    string
}

type notifierFake struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *notifierFake) Send(_ context.Context, to, subject, html string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, html: html})
	return nil
}

type changeCall struct {
	username string
	password string
}

type changerFake struct {
	mu    sync.Mutex
	calls []changeCall
	err   error
}

func (f *changerFake) ChangePassword(_ context.Context, username, newPassword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, changeCall{username: username, password: newPassword})
	return f.err
}

type policyFake struct {
	err error
}

func (f policyFake) Validate(string, string, string) error {
	return f.err
}

type eventsFake struct {
	mu        sync.Mutex
	issued    []domain.CodeIssuedEvent
	changed   []domain.PasswordChangedEvent
	lifecycle []domain.UserLifecycleEvent
	err       error
}

func (f *eventsFake) PublishCodeIssued(_ context.Context, event domain.CodeIssuedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued = append(f.issued, event)
	return f.err
}

func (f *eventsFake) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changed = append(f.changed, event)
	return f.err
}

func (f *eventsFake) PublishUserLifecycle(_ context.Context, event domain.UserLifecycleEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lifecycle = append(f.lifecycle, event)
	return f.err
}

type metricsFake struct {
	mu          sync.Mutex
	issued      map[string]int
	validations map[string]int
	changes     map[string]int
	swept       int64
	rejected    int
}

func newMetricsFake() *metricsFake {
	return &metricsFake{
		issued:      make(map[string]int),
		validations: make(map[string]int),
		changes:     make(map[string]int),
	}
}

func (m *metricsFake) CodeIssued(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issued[result]++
}

func (m *metricsFake) CodeValidated(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validations[result]++
}

func (m *metricsFake) PasswordChanged(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes[result]++
}

func (m *metricsFake) CodesSwept(count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swept += count
}

func (m *metricsFake) RateLimitRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected++
}

type rateLimitStoreFake struct {
	mu     sync.Mutex
	evicts int
	err    error
}

func (f *rateLimitStoreFake) Increment(context.Context, string, time.Time, time.Duration) (domain.RateLimitEntry, error) {
	return domain.RateLimitEntry{}, errors.New("unexpected call: Increment")
}

func (f *rateLimitStoreFake) EvictIdle(context.Context, time.Time, time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evicts++
	return 1, f.err
}

func (f *rateLimitStoreFake) evictCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.evicts
}

package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Korabi-dev/password-reset-adds/internal/core/domain"
	"github.com/Korabi-dev/password-reset-adds/internal/core/port"
	"github.com/Korabi-dev/password-reset-adds/internal/infra/config"
	"github.com/Korabi-dev/password-reset-adds/internal/infra/logger"
)

const (
	defaultSuccessMarker = "success"
	maxLoggedStderr      = 512
	pipeWaitDelay        = time.Second
)

// Runner applies new passwords by spawning the configured program with the
// username and password appended to its arguments.
//
// The outcome is decided by whichever happens first: a stdout line containing
// the success marker, any stderr output, the configured timeout, or process
// exit. The process is not tied to the caller's context and keeps running
// after the caller gives up.
type Runner struct {
	path    string
	args    []string
	marker  string
	timeout time.Duration
	logger  *zap.Logger
}

// NewRunner constructs a runner from configuration.
func NewRunner(cfg config.PasswordCommandSettings, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	marker := strings.TrimSpace(cfg.SuccessMarker)
	if marker == "" {
		marker = defaultSuccessMarker
	}
	args := make([]string, len(cfg.Args))
	copy(args, cfg.Args)

	return &Runner{
		path:    cfg.Path,
		args:    args,
		marker:  strings.ToLower(marker),
		timeout: cfg.Timeout,
		logger:  logger.With(zap.String("component", "password_command")),
	}
}

// ChangePassword waits for the first outcome or for ctx to end.
func (r *Runner) ChangePassword(ctx context.Context, username, newPassword string) error {
	select {
	case err := <-r.start(username, newPassword):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) start(username, newPassword string) <-chan error {
	result := make(chan error, 1)
	var once sync.Once
	resolve := func(err error) {
		once.Do(func() { result <- err })
	}

	runCtx, cancel := context.Background(), context.CancelFunc(func() {})
	if r.timeout > 0 {
		runCtx, cancel = context.WithTimeout(context.Background(), r.timeout)
	}

	argv := append(append(make([]string, 0, len(r.args)+2), r.args...), username, newPassword)
	cmd := exec.CommandContext(runCtx, r.path, argv...)

	// Children of the program may inherit stdout and stderr. WaitDelay bounds
	// how long Wait keeps copying from them once the program itself is gone.
	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	cmd.WaitDelay = pipeWaitDelay

	if err := cmd.Start(); err != nil {
		cancel()
		_ = stdoutW.Close()
		_ = stderrW.Close()
		r.logger.Error("password command failed to start", zap.String("path", r.path), zap.Error(err))
		resolve(fmt.Errorf("%w: %v", domain.ErrPasswordCommandStart, err))
		return result
	}

	if r.timeout > 0 {
		go func() {
			<-runCtx.Done()
			if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
				r.logger.Warn("password command timed out", zap.Duration("timeout", r.timeout))
				resolve(domain.ErrPasswordCommandTimeout)
			}
		}()
	}

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		r.scanForMarker(stdoutR, func() { resolve(nil) })
	}()
	go func() {
		defer readers.Done()
		watchStderr(stderrR, func(text string) {
			r.logger.Warn("password command wrote to stderr",
				zap.String("username", username),
				zap.String("stderr", logger.MaskString(redact(text, newPassword))),
			)
			resolve(domain.ErrPasswordChangeFailed)
		})
	}()

	go func() {
		defer cancel()

		waitErr := cmd.Wait()
		_ = stdoutW.Close()
		_ = stderrW.Close()
		readers.Wait()

		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			resolve(domain.ErrPasswordCommandTimeout)
		case waitErr != nil && !errors.Is(waitErr, exec.ErrWaitDelay):
			resolve(fmt.Errorf("%w: %v", domain.ErrPasswordCommandExit, waitErr))
		default:
			resolve(domain.ErrPasswordCommandUnconfirmed)
		}
	}()

	return result
}

// scanForMarker reads stdout to EOF and calls onMatch for the first line containing the marker.
func (r *Runner) scanForMarker(stdout io.Reader, onMatch func()) {
	found := false
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if !found && strings.Contains(strings.ToLower(scanner.Text()), r.marker) {
			found = true
			onMatch()
		}
	}
	_, _ = io.Copy(io.Discard, stdout)
}

// watchStderr calls onOutput with the first non-empty chunk written to stderr, then drains the rest.
func watchStderr(stderr io.Reader, onOutput func(string)) {
	buf := make([]byte, maxLoggedStderr)
	for {
		n, err := stderr.Read(buf)
		if n > 0 {
			onOutput(strings.TrimSpace(string(buf[:n])))
			break
		}
		if err != nil {
			return
		}
	}
	_, _ = io.Copy(io.Discard, stderr)
}

func redact(text, secret string) string {
	if secret == "" {
		return text
	}
	return strings.ReplaceAll(text, secret, "***")
}

var _ port.PasswordChanger = (*Runner)(nil)

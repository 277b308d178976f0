package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/Korabi-dev/password-reset-adds/internal/core/port"
	"github.com/Korabi-dev/password-reset-adds/internal/infra/logger"
)

// LogNotifier records dispatches without delivering them. The body is never logged
// because it carries the reset code.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a notifier backed by structured logging.
func NewLogNotifier(log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{logger: log}
}

func (n *LogNotifier) Send(ctx context.Context, to, subject, html string) error {
	fields := append(logger.ContextFields(ctx),
		zap.String("to", logger.MaskEmail(to)),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(html)),
	)
	n.logger.Info("dispatch reset code email", fields...)
	return nil
}

var _ port.Notifier = (*LogNotifier)(nil)

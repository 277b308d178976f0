package port

import "context"

// Notifier delivers an HTML message to a single recipient.
type Notifier interface {
	Send(ctx context.Context, to, subject, html string) error
}

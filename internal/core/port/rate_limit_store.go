package port

import (
	"context"
	"time"

	"github.com/Korabi-dev/password-reset-adds/internal/core/domain"
)

// RateLimitStore defines the persistence operations required to enforce fixed-window limits.
type RateLimitStore interface {
	// Increment records one request at now. A missing entry, or one whose window started
	// at least window ago, restarts with a count of one.
	Increment(ctx context.Context, clientID string, now time.Time, window time.Duration) (domain.RateLimitEntry, error)
	// EvictIdle drops entries whose window started more than idle before now.
	EvictIdle(ctx context.Context, now time.Time, idle time.Duration) (int, error)
}

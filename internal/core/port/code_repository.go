package port

import (
	"context"
	"time"

	"github.com/Korabi-dev/password-reset-adds/internal/core/domain"
)

// CodeRepository persists outstanding reset codes.
//
// At most one record may exist per username, per email and per code value.
// Implementations enforce this atomically in Create and report violations as
// repository.ErrDuplicate.
type CodeRepository interface {
	Create(ctx context.Context, code domain.ResetCode) error
	FindByCode(ctx context.Context, code string) (*domain.ResetCode, error)
	// FindConflict returns any record sharing the username, email or code value.
	FindConflict(ctx context.Context, username, email, code string) (*domain.ResetCode, error)
	// DeleteByCode reports whether this call removed the record.
	DeleteByCode(ctx context.Context, code string) (bool, error)
	// IncrementMismatches bumps the failed-email counter and returns the new value.
	IncrementMismatches(ctx context.Context, code string) (int, error)
	// DeleteOlderThan removes records issued before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

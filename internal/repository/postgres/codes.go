package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/Korabi-dev/password-reset-adds/internal/core/domain"
	"github.com/Korabi-dev/password-reset-adds/internal/core/port"
	"github.com/Korabi-dev/password-reset-adds/internal/repository"
)

var codeColumns = []string{"code", "email", "username", "issued_at", "mismatches"}

// CodeRepository implements port.CodeRepository. Uniqueness of code, email and
// username is enforced by constraints on resetd.reset_codes.
type CodeRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewCodeRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewCodeRepository(exec pgExecutor) *CodeRepository {
	return &CodeRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new outstanding code.
func (r *CodeRepository) Create(ctx context.Context, code domain.ResetCode) error {
	stmt, args, err := r.builder.Insert("resetd.reset_codes").
		Columns(codeColumns...).
		Values(code.Code, code.Email, code.Username, code.IssuedAt, code.Mismatches).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert reset code sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		if mapped := translateWriteError(err); mapped == repository.ErrDuplicate {
			return mapped
		}
		return fmt.Errorf("insert reset code: %w", err)
	}

	return nil
}

// FindByCode loads the record holding the supplied code value.
func (r *CodeRepository) FindByCode(ctx context.Context, code string) (*domain.ResetCode, error) {
	stmt, args, err := r.builder.Select(codeColumns...).
		From("resetd.reset_codes").
		Where(squirrel.Eq{"code": code}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select reset code sql: %w", err)
	}

	return r.scanOne(ctx, stmt, args)
}

// FindConflict returns any record sharing the username, email or code.
func (r *CodeRepository) FindConflict(ctx context.Context, username, email, code string) (*domain.ResetCode, error) {
	stmt, args, err := r.builder.Select(codeColumns...).
		From("resetd.reset_codes").
		Where(squirrel.Or{
			squirrel.Eq{"username": username},
			squirrel.Eq{"email": email},
			squirrel.Eq{"code": code},
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select conflicting reset code sql: %w", err)
	}

	return r.scanOne(ctx, stmt, args)
}

// DeleteByCode removes the record and reports whether this call deleted it.
func (r *CodeRepository) DeleteByCode(ctx context.Context, code string) (bool, error) {
	stmt, args, err := r.builder.Delete("resetd.reset_codes").
		Where(squirrel.Eq{"code": code}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build delete reset code sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return false, fmt.Errorf("delete reset code: %w", err)
	}

	return ct.RowsAffected() > 0, nil
}

// IncrementMismatches bumps the mismatch counter and returns the stored value.
func (r *CodeRepository) IncrementMismatches(ctx context.Context, code string) (int, error) {
	stmt, args, err := r.builder.Update("resetd.reset_codes").
		Set("mismatches", squirrel.Expr("mismatches + 1")).
		Where(squirrel.Eq{"code": code}).
		Suffix("RETURNING mismatches").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build increment mismatches sql: %w", err)
	}

	var count int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("increment mismatches: %w", err)
	}

	return count, nil
}

// DeleteOlderThan removes codes issued before cutoff.
func (r *CodeRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	stmt, args, err := r.builder.Delete("resetd.reset_codes").
		Where(squirrel.Lt{"issued_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build sweep reset codes sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("sweep reset codes: %w", err)
	}

	return ct.RowsAffected(), nil
}

func (r *CodeRepository) scanOne(ctx context.Context, stmt string, args []any) (*domain.ResetCode, error) {
	var record domain.ResetCode
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&record.Code,
		&record.Email,
		&record.Username,
		&record.IssuedAt,
		&record.Mismatches,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan reset code: %w", err)
	}
	return &record, nil
}

var _ port.CodeRepository = (*CodeRepository)(nil)

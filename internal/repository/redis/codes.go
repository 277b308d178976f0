package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/Korabi-dev/password-reset-adds/internal/core/domain"
	"github.com/Korabi-dev/password-reset-adds/internal/core/port"
	"github.com/Korabi-dev/password-reset-adds/internal/repository"
)

const (
	defaultCodePrefix = "resetd"

	fieldEmail      = "email"
	fieldUsername   = "username"
	fieldIssuedAt   = "issued_at"
	fieldMismatches = "mismatches"

	sweepScanCount = 100
)

// createCodeScript inserts the code hash plus its email and username index keys
// only when none of the three exist.
var createCodeScript = red.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 or redis.call('EXISTS', KEYS[2]) == 1 or redis.call('EXISTS', KEYS[3]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], 'email', ARGV[1], 'username', ARGV[2], 'issued_at', ARGV[3], 'mismatches', ARGV[4])
redis.call('SET', KEYS[2], ARGV[5])
redis.call('SET', KEYS[3], ARGV[5])
local ttl = tonumber(ARGV[6])
if ttl > 0 then
  redis.call('PEXPIRE', KEYS[1], ttl)
  redis.call('PEXPIRE', KEYS[2], ttl)
  redis.call('PEXPIRE', KEYS[3], ttl)
end
return 1
`)

// deleteCodeScript removes the code hash and any index keys still pointing at it.
var deleteCodeScript = red.NewScript(`
local email = redis.call('HGET', KEYS[1], 'email')
if not email then
  return 0
end
local username = redis.call('HGET', KEYS[1], 'username')
redis.call('DEL', KEYS[1])
local emailKey = ARGV[1] .. ':email:' .. email
if redis.call('GET', emailKey) == ARGV[2] then
  redis.call('DEL', emailKey)
end
if username then
  local usernameKey = ARGV[1] .. ':username:' .. username
  if redis.call('GET', usernameKey) == ARGV[2] then
    redis.call('DEL', usernameKey)
  end
end
return 1
`)

// incrementMismatchesScript bumps the counter of an existing code and returns
// -1 when the code is gone, so a missing hash is never recreated.
var incrementMismatchesScript = red.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
return redis.call('HINCRBY', KEYS[1], 'mismatches', 1)
`)

// CodeRepository keeps outstanding reset codes in Redis. Keys expire after the
// retention period so abandoned codes disappear even without the sweeper.
type CodeRepository struct {
	client    *red.Client
	prefix    string
	retention time.Duration
}

// NewCodeRepository constructs a code repository under keyPrefix.
func NewCodeRepository(client *red.Client, keyPrefix string, retention time.Duration) *CodeRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultCodePrefix
	}
	return &CodeRepository{client: client, prefix: prefix, retention: retention}
}

// Create stores the code atomically, refusing any clash on code, email or username.
func (r *CodeRepository) Create(ctx context.Context, code domain.ResetCode) error {
	keys := []string{r.codeKey(code.Code), r.emailKey(code.Email), r.usernameKey(code.Username)}
	created, err := createCodeScript.Run(ctx, r.client, keys,
		code.Email,
		code.Username,
		strconv.FormatInt(code.IssuedAt.UnixMilli(), 10),
		strconv.Itoa(code.Mismatches),
		code.Code,
		strconv.FormatInt(r.retention.Milliseconds(), 10),
	).Int()
	if err != nil {
		return fmt.Errorf("redis create reset code: %w", err)
	}
	if created == 0 {
		return repository.ErrDuplicate
	}
	return nil
}

func (r *CodeRepository) FindByCode(ctx context.Context, code string) (*domain.ResetCode, error) {
	return r.fetch(ctx, code)
}

// FindConflict resolves the email and username indexes before checking the code itself.
func (r *CodeRepository) FindConflict(ctx context.Context, username, email, code string) (*domain.ResetCode, error) {
	pipe := r.client.Pipeline()
	byUsername := pipe.Get(ctx, r.usernameKey(username))
	byEmail := pipe.Get(ctx, r.emailKey(email))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, red.Nil) {
		return nil, fmt.Errorf("redis lookup reset code indexes: %w", err)
	}

	for _, cmd := range []*red.StringCmd{byUsername, byEmail} {
		if value, err := cmd.Result(); err == nil && value != "" {
			record, fetchErr := r.fetch(ctx, value)
			if fetchErr == nil {
				return record, nil
			}
			if !errors.Is(fetchErr, repository.ErrNotFound) {
				return nil, fetchErr
			}
		}
	}

	return r.fetch(ctx, code)
}

func (r *CodeRepository) DeleteByCode(ctx context.Context, code string) (bool, error) {
	deleted, err := deleteCodeScript.Run(ctx, r.client, []string{r.codeKey(code)}, r.prefix, code).Int()
	if err != nil {
		return false, fmt.Errorf("redis delete reset code: %w", err)
	}
	return deleted == 1, nil
}

func (r *CodeRepository) IncrementMismatches(ctx context.Context, code string) (int, error) {
	count, err := incrementMismatchesScript.Run(ctx, r.client, []string{r.codeKey(code)}).Int()
	if err != nil {
		return 0, fmt.Errorf("redis increment reset code mismatches: %w", err)
	}
	if count < 0 {
		return 0, repository.ErrNotFound
	}
	return count, nil
}

// DeleteOlderThan scans every stored code and removes the ones issued before cutoff.
func (r *CodeRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var (
		cursor  uint64
		removed int64
		pattern = r.prefix + ":code:*"
		limit   = cutoff.UnixMilli()
	)

	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, sweepScanCount).Result()
		if err != nil {
			return removed, fmt.Errorf("redis scan reset codes: %w", err)
		}

		for _, key := range keys {
			raw, err := r.client.HGet(ctx, key, fieldIssuedAt).Result()
			if errors.Is(err, red.Nil) {
				continue
			}
			if err != nil {
				return removed, fmt.Errorf("redis hget issued_at: %w", err)
			}
			issued, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || issued >= limit {
				continue
			}

			deleted, err := r.DeleteByCode(ctx, strings.TrimPrefix(key, r.prefix+":code:"))
			if err != nil {
				return removed, err
			}
			if deleted {
				removed++
			}
		}

		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

func (r *CodeRepository) fetch(ctx context.Context, code string) (*domain.ResetCode, error) {
	values, err := r.client.HGetAll(ctx, r.codeKey(code)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall reset code: %w", err)
	}
	if len(values) == 0 {
		return nil, repository.ErrNotFound
	}

	issuedMillis, err := strconv.ParseInt(values[fieldIssuedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse issued_at: %w", err)
	}

	mismatches := 0
	if raw := values[fieldMismatches]; raw != "" {
		if v, convErr := strconv.Atoi(raw); convErr == nil {
			mismatches = v
		}
	}

	return &domain.ResetCode{
		Code:       code,
		Email:      values[fieldEmail],
		Username:   values[fieldUsername],
		IssuedAt:   time.UnixMilli(issuedMillis).UTC(),
		Mismatches: mismatches,
	}, nil
}

func (r *CodeRepository) codeKey(code string) string {
	return fmt.Sprintf("%s:code:%s", r.prefix, code)
}

func (r *CodeRepository) emailKey(email string) string {
	return fmt.Sprintf("%s:email:%s", r.prefix, email)
}

func (r *CodeRepository) usernameKey(username string) string {
	return fmt.Sprintf("%s:username:%s", r.prefix, username)
}

var _ port.CodeRepository = (*CodeRepository)(nil)

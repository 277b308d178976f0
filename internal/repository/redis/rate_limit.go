package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Korabi-dev/password-reset-adds/internal/core/domain"
	"github.com/Korabi-dev/password-reset-adds/internal/core/port"
)

// incrementWindowScript restarts the window when it is absent or elapsed, otherwise bumps the count.
// It returns {count, window_start_ms}.
var incrementWindowScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local start = redis.call('HGET', KEYS[1], 'start')
if (not start) or (now - tonumber(start) >= window) then
  redis.call('HSET', KEYS[1], 'count', 1, 'start', ARGV[1])
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
  return {1, now}
end
local count = redis.call('HINCRBY', KEYS[1], 'count', 1)
return {count, tonumber(start)}
`)

// RateLimitRepository keeps fixed-window counters in Redis hashes so several
// instances share one quota per client.
type RateLimitRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRateLimitRepository constructs a repository using the provided Redis client and key prefix.
func NewRateLimitRepository(client *redis.Client, keyPrefix string) *RateLimitRepository {
	return &RateLimitRepository{client: client, keyPrefix: keyPrefix}
}

// Increment counts one request for clientID.
func (r *RateLimitRepository) Increment(ctx context.Context, clientID string, now time.Time, window time.Duration) (domain.RateLimitEntry, error) {
	values, err := incrementWindowScript.Run(ctx, r.client, []string{r.key(clientID)},
		strconv.FormatInt(now.UnixMilli(), 10),
		strconv.FormatInt(window.Milliseconds(), 10),
	).Int64Slice()
	if err != nil {
		return domain.RateLimitEntry{}, fmt.Errorf("redis increment rate limit: %w", err)
	}
	if len(values) != 2 {
		return domain.RateLimitEntry{}, fmt.Errorf("redis increment rate limit: unexpected reply %v", values)
	}

	return domain.RateLimitEntry{
		ClientID:    clientID,
		Count:       int(values[0]),
		WindowStart: time.UnixMilli(values[1]).UTC(),
	}, nil
}

// EvictIdle is a no-op: every counter key expires one window after it was opened.
func (r *RateLimitRepository) EvictIdle(context.Context, time.Time, time.Duration) (int, error) {
	return 0, nil
}

func (r *RateLimitRepository) key(identifier string) string {
	if r.keyPrefix == "" {
		return "ratelimit:" + identifier
	}
	return fmt.Sprintf("%s:ratelimit:%s", r.keyPrefix, identifier)
}

var _ port.RateLimitStore = (*RateLimitRepository)(nil)

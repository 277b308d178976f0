package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Korabi-dev/password-reset-adds/internal/core/port"
	appLogger "github.com/Korabi-dev/password-reset-adds/internal/infra/logger"
)

const (
	defaultRateLimit       = 5
	defaultRateLimitWindow = time.Minute

	rateLimitedMessage = "Rate limit exceeded, please try again later"
	missingIPMessage   = "Missing IP address"
)

// IdentifierFunc extracts the identifier used to scope rate limits.
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule configures a fixed-window limit.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

// RateLimiter enforces fixed-window request quotas per client.
type RateLimiter struct {
	store   port.RateLimitStore
	metrics port.ResetMetrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewRateLimiter builds a reusable rate limiter middleware helper. metrics may be nil.
func NewRateLimiter(store port.RateLimitStore, metrics port.ResetMetrics, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RateLimiter{
		store:   store,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// ClientIdentifier returns the raw X-Forwarded-For header when present, otherwise the
// host part of the socket peer address.
func ClientIdentifier(c *gin.Context) string {
	if forwarded := strings.TrimSpace(c.GetHeader("X-Forwarded-For")); forwarded != "" {
		return forwarded
	}
	remote := strings.TrimSpace(c.Request.RemoteAddr)
	if remote == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(remote); err == nil {
		return host
	}
	return remote
}

// ForwardedForIdentifier builds an IdentifierFunc from ClientIdentifier.
func ForwardedForIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		id := ClientIdentifier(c)
		return id, id != ""
	}
}

// RateLimit returns a Gin middleware enforcing rule. Store failures are logged and the request is let through.
func (rl *RateLimiter) RateLimit(rule RateLimitRule) gin.HandlerFunc {
	if rule.Limit <= 0 {
		rule.Limit = defaultRateLimit
	}
	if rule.Window <= 0 {
		rule.Window = defaultRateLimitWindow
	}
	if rule.Identifier == nil {
		rule.Identifier = ForwardedForIdentifier()
	}
	if rule.Name == "" {
		rule.Name = "default"
	}

	return func(c *gin.Context) {
		if rl.store == nil {
			c.Next()
			return
		}

		identifier, ok := rule.Identifier(c)
		if !ok || identifier == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, newErrorResponse(c, missingIPMessage))
			return
		}

		now := rl.now()
		entry, err := rl.store.Increment(c.Request.Context(), rule.Name+":"+identifier, now, rule.Window)
		if err != nil {
			rl.logger.Warn("rate limit check failed",
				zap.String("rule", rule.Name),
				zap.String("client", appLogger.MaskIP(identifier)),
				zap.Error(err),
			)
			c.Next()
			return
		}

		reset := entry.WindowStart.Add(rule.Window)
		remaining := rule.Limit - entry.Count
		if remaining < 0 {
			remaining = 0
		}

		headers := c.Writer.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if entry.Count > rule.Limit {
			seconds := int(math.Ceil(reset.Sub(now).Seconds()))
			if seconds < 0 {
				seconds = 0
			}
			headers.Set("Retry-After", strconv.Itoa(seconds))
			if rl.metrics != nil {
				rl.metrics.RateLimitRejected()
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, newErrorResponse(c, rateLimitedMessage))
			return
		}

		c.Next()
	}
}

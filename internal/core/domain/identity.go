package domain

import "time"

// User mirrors a provisioned account that is allowed to request reset codes.
type User struct {
	Username  string
	Email     string
	CreatedAt time.Time
}

// ResetCode is an outstanding, single-use reset credential bound to a user/email pair.
type ResetCode struct {
	Code       string
	Email      string
	Username   string
	IssuedAt   time.Time
	Mismatches int
}

// ExpiresAt returns the instant at which the code stops being accepted.
func (c ResetCode) ExpiresAt(window time.Duration) time.Time {
	return c.IssuedAt.Add(window)
}

// IsExpired reports whether the code is stale at the supplied instant.
// A code presented exactly at IssuedAt+window is expired.
func (c ResetCode) IsExpired(now time.Time, window time.Duration) bool {
	return now.Sub(c.IssuedAt) >= window
}

// RateLimitEntry tracks the fixed-window counter of a single client.
type RateLimitEntry struct {
	ClientID    string
	Count       int
	WindowStart time.Time
}

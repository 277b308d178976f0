package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Korabi-dev/password-reset-adds/internal/core/domain"
	"github.com/Korabi-dev/password-reset-adds/internal/core/port"
)

// RateLimitStore is a process-local fixed-window counter table.
type RateLimitStore struct {
	mu      sync.Mutex
	entries map[string]domain.RateLimitEntry
}

// NewRateLimitStore returns an empty table.
func NewRateLimitStore() *RateLimitStore {
	return &RateLimitStore{entries: make(map[string]domain.RateLimitEntry)}
}

// Increment counts one request for clientID at now.
func (s *RateLimitStore) Increment(_ context.Context, clientID string, now time.Time, window time.Duration) (domain.RateLimitEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[clientID]
	if !ok || now.Sub(entry.WindowStart) >= window {
		entry = domain.RateLimitEntry{ClientID: clientID, Count: 1, WindowStart: now}
	} else {
		entry.Count++
	}
	s.entries[clientID] = entry

	return entry, nil
}

// EvictIdle drops entries whose window opened more than idle before now.
func (s *RateLimitStore) EvictIdle(_ context.Context, now time.Time, idle time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, entry := range s.entries {
		if now.Sub(entry.WindowStart) > idle {
			delete(s.entries, id)
			evicted++
		}
	}
	return evicted, nil
}

// Len reports the number of tracked clients.
func (s *RateLimitStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)

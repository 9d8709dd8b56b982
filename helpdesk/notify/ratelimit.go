package notify

import (
	"fmt"
	"sync"
	"time"
)

// pushInterval is the minimum gap between "new message" alerts for the same
// (chat, ticket) pair. The limiter does not apply to live forwards for the
// chat's active ticket; the Notifier bypasses it before consulting ShouldPush.
const pushInterval = time.Hour

// RateLimiter throttles alert pushes per (chat, ticket) pair.
type RateLimiter struct {
	mu       sync.Mutex
	lastPush map[string]time.Time
}

// NewRateLimiter constructs an empty RateLimiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{lastPush: make(map[string]time.Time)}
}

func pushKey(chatID string, ticketID int64) string {
	return fmt.Sprintf("%s:%d", chatID, ticketID)
}

// ShouldPush reports whether an alert may be sent now. When it returns true
// the stored timestamp is advanced to now, so the caller must actually send.
func (r *RateLimiter) ShouldPush(chatID string, ticketID int64, now time.Time) bool {
	key := pushKey(chatID, ticketID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if last, ok := r.lastPush[key]; ok && now.Sub(last) <= pushInterval {
		return false
	}
	r.lastPush[key] = now
	return true
}

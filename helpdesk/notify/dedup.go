// Package notify bridges staff replies posted on the web dashboard to the
// user's Telegram chat: it suppresses duplicate deliveries, throttles alert
// pushes, and forwards live updates when the chat is tuned into the ticket.
package notify

import (
	"hash/fnv"
	"sync"
	"time"
)

const (
	// historyCap bounds the per-chat dedup history; oldest entries are
	// evicted first.
	historyCap = 10
	// dedupWindow is the time span within which two identical messages to
	// the same chat are treated as one.
	dedupWindow = 5 * time.Second
)

type dedupEntry struct {
	hash uint64
	at   time.Time
}

// Deduplicator detects near-simultaneous duplicate messages per chat. The
// content hash is not scoped to a ticket, so identical texts for two tickets
// of the same chat within the window collapse; hash collisions are accepted
// as a rare false-duplicate risk.
type Deduplicator struct {
	mu      sync.Mutex
	history map[string][]dedupEntry
}

// NewDeduplicator constructs an empty Deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{history: make(map[string][]dedupEntry)}
}

func contentHash(text string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	return h.Sum64()
}

// IsDuplicate reports whether the message duplicates a recent delivery to the
// chat. Non-duplicate messages are recorded in the chat's history.
func (d *Deduplicator) IsDuplicate(chatID, text string, at time.Time) bool {
	hash := contentHash(text)

	d.mu.Lock()
	defer d.mu.Unlock()

	entries := d.history[chatID]
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].hash == hash && at.Sub(entries[i].at) < dedupWindow {
			return true
		}
	}

	entries = append(entries, dedupEntry{hash: hash, at: at})
	if len(entries) > historyCap {
		entries = entries[len(entries)-historyCap:]
	}
	d.history[chatID] = entries
	return false
}

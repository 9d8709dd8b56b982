package session

import (
	"sync"
	"time"

	"helpdeskbot/core/logger"
	tghelpers "helpdeskbot/core/telegram/helpers"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

type memoryManager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	now      func() time.Time
}

// NewMemoryManager constructs the in-memory Manager used in production.
// Sessions are created lazily on first access from an unknown chat.
func NewMemoryManager() Manager {
	return &memoryManager{
		sessions: make(map[int64]*Session),
		now:      time.Now,
	}
}

// NewMemoryManagerWithClock is like NewMemoryManager but with an injected
// clock for tests.
func NewMemoryManagerWithClock(now func() time.Time) Manager {
	return &memoryManager{
		sessions: make(map[int64]*Session),
		now:      now,
	}
}

func (m *memoryManager) get(chatID int64) *Session {
	sess, ok := m.sessions[chatID]
	if !ok {
		sess = &Session{
			ChatID:         chatID,
			State:          StateIdle,
			Draft:          make(map[string]string),
			LastActivityAt: m.now(),
		}
		m.sessions[chatID] = sess
	}
	return sess
}

// Get returns a deep copy of the session for a chat, creating it if
// necessary. Mutating the snapshot never touches the live session.
func (m *memoryManager) Get(chatID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.get(chatID)
	snapshot := *sess
	snapshot.Draft = make(map[string]string, len(sess.Draft))
	for k, v := range sess.Draft {
		snapshot.Draft[k] = v
	}
	snapshot.Attachments = append([]PendingAttachment(nil), sess.Attachments...)
	snapshot.TicketIDs = append([]int64(nil), sess.TicketIDs...)
	return &snapshot
}

// SetState sets the FSM state for the given chat.
func (m *memoryManager) SetState(chatID int64, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(chatID).State = st
}

// GetState returns the current FSM state of a chat, or StateIdle if none exists.
func (m *memoryManager) GetState(chatID int64) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sess, ok := m.sessions[chatID]; ok {
		return sess.State
	}
	return StateIdle
}

// SetDraft stores a wizard field value in the chat's draft.
func (m *memoryManager) SetDraft(chatID int64, key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(chatID).Draft[key] = value
}

// Draft returns a copy of the chat's accumulated draft fields.
func (m *memoryManager) Draft(chatID int64) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string)
	if sess, ok := m.sessions[chatID]; ok {
		for k, v := range sess.Draft {
			out[k] = v
		}
	}
	return out
}

// AddAttachment appends a pending attachment, reporting the new count and
// whether the file was accepted. The MaxAttachments cap is enforced here so
// concurrent submissions cannot overflow the draft.
func (m *memoryManager) AddAttachment(chatID int64, att PendingAttachment) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.get(chatID)
	if len(sess.Attachments) >= MaxAttachments {
		return len(sess.Attachments), false
	}
	sess.Attachments = append(sess.Attachments, att)
	return len(sess.Attachments), true
}

// Attachments returns a copy of the pending attachment list.
func (m *memoryManager) Attachments(chatID int64) []PendingAttachment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[chatID]
	if !ok {
		return nil
	}
	return append([]PendingAttachment(nil), sess.Attachments...)
}

// SetActiveTicket binds the chat to a ticket for live message forwarding.
// A ticketID of 0 clears the binding.
func (m *memoryManager) SetActiveTicket(chatID int64, ticketID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(chatID).ActiveTicketID = ticketID
}

// ActiveTicket returns the currently bound ticket id, or 0.
func (m *memoryManager) ActiveTicket(chatID int64) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sess, ok := m.sessions[chatID]; ok {
		return sess.ActiveTicketID
	}
	return 0
}

// SetPagination stores the browsable ticket id snapshot and current page.
func (m *memoryManager) SetPagination(chatID int64, ids []int64, page int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.get(chatID)
	sess.TicketIDs = append([]int64(nil), ids...)
	sess.Page = page
}

// Pagination returns the stored ticket ids and the current page index.
func (m *memoryManager) Pagination(chatID int64) ([]int64, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[chatID]
	if !ok {
		return nil, 0
	}
	return append([]int64(nil), sess.TicketIDs...), sess.Page
}

// Touch records inbound activity from the chat.
func (m *memoryManager) Touch(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(chatID).LastActivityAt = m.now()
}

// Reset returns the session to idle, discarding the draft, pending
// attachments and the active-ticket binding.
func (m *memoryManager) Reset(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[chatID]
	if !ok {
		return
	}
	sess.State = StateIdle
	sess.Draft = make(map[string]string)
	sess.Attachments = nil
	sess.ActiveTicketID = 0
	sess.Page = 0
	sess.TicketIDs = nil
}

// Range iterates over a snapshot of all sessions.
func (m *memoryManager) Range(fn func(s Session)) {
	m.mu.RLock()
	snapshot := make([]Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		snapshot = append(snapshot, *sess)
	}
	m.mu.RUnlock()
	for _, sess := range snapshot {
		fn(sess)
	}
}

// InProgress reports whether the chat currently has an active FSM state.
func (m *memoryManager) InProgress(chatID int64) bool {
	return m.GetState(chatID) != StateIdle
}

// ManagerHandler executes the handler function registered for the chat's
// current state, if any.
func (m *memoryManager) ManagerHandler(c tele.Context) error {
	chatID := c.Chat().ID
	current := m.GetState(chatID)
	ctx := tghelpers.BuildContext(c)
	logger.Debug(ctx, "tg", "fsm.manager",
		slog.String("status", "ok"),
		slog.Int64("chat_id", chatID),
		slog.String("state", string(current)),
	)

	if handler, ok := fsmHandlers[current]; ok {
		return handler(c)
	}
	return nil
}

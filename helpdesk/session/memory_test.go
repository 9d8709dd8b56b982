package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateTransitions(t *testing.T) {
	m := NewMemoryManager()

	assert.Equal(t, StateIdle, m.GetState(1))
	assert.False(t, m.InProgress(1))

	m.SetState(1, StateAwaitingFullName)
	assert.Equal(t, StateAwaitingFullName, m.GetState(1))
	assert.True(t, m.InProgress(1))

	// Other chats are unaffected.
	assert.Equal(t, StateIdle, m.GetState(2))
}

func TestDraftAccumulation(t *testing.T) {
	m := NewMemoryManager()

	m.SetDraft(1, "full_name", "Иванов Иван")
	m.SetDraft(1, "position", "Инженер")

	draft := m.Draft(1)
	assert.Equal(t, "Иванов Иван", draft["full_name"])
	assert.Equal(t, "Инженер", draft["position"])

	// The returned draft is a copy; mutating it must not leak back.
	draft["full_name"] = "кто-то другой"
	assert.Equal(t, "Иванов Иван", m.Draft(1)["full_name"])
}

func TestAddAttachmentCap(t *testing.T) {
	m := NewMemoryManager()

	for i := 0; i < MaxAttachments; i++ {
		n, ok := m.AddAttachment(1, PendingAttachment{FileName: fmt.Sprintf("file%d.pdf", i)})
		require.True(t, ok)
		assert.Equal(t, i+1, n)
	}

	n, ok := m.AddAttachment(1, PendingAttachment{FileName: "overflow.pdf"})
	assert.False(t, ok)
	assert.Equal(t, MaxAttachments, n)
	assert.Len(t, m.Attachments(1), MaxAttachments)
}

func TestGetSnapshotIsDetached(t *testing.T) {
	m := NewMemoryManager()

	m.SetDraft(1, "title", "Сломался монитор")
	m.AddAttachment(1, PendingAttachment{FileName: "screen.jpg"})
	m.SetPagination(1, []int64{5, 4}, 0)

	snap := m.Get(1)
	snap.Draft["title"] = "другое"
	snap.Attachments[0].FileName = "hacked.jpg"
	snap.TicketIDs[0] = 99

	assert.Equal(t, "Сломался монитор", m.Draft(1)["title"])
	assert.Equal(t, "screen.jpg", m.Attachments(1)[0].FileName)
	ids, _ := m.Pagination(1)
	assert.Equal(t, int64(5), ids[0])
}

func TestActiveTicketBinding(t *testing.T) {
	m := NewMemoryManager()

	assert.Zero(t, m.ActiveTicket(1))
	m.SetActiveTicket(1, 42)
	assert.Equal(t, int64(42), m.ActiveTicket(1))
	m.SetActiveTicket(1, 0)
	assert.Zero(t, m.ActiveTicket(1))
}

func TestPaginationSnapshot(t *testing.T) {
	m := NewMemoryManager()

	ids := []int64{5, 4, 3}
	m.SetPagination(1, ids, 2)
	got, page := m.Pagination(1)
	assert.Equal(t, ids, got)
	assert.Equal(t, 2, page)

	ids[0] = 99
	got, _ = m.Pagination(1)
	assert.Equal(t, int64(5), got[0], "stored snapshot must not alias the caller's slice")
}

func TestResetClearsEverything(t *testing.T) {
	m := NewMemoryManager()

	m.SetState(1, StateCollectingAttachments)
	m.SetDraft(1, "title", "Сломался монитор")
	m.AddAttachment(1, PendingAttachment{FileName: "screen.jpg"})
	m.SetActiveTicket(1, 42)
	m.SetPagination(1, []int64{1, 2}, 1)

	m.Reset(1)

	assert.Equal(t, StateIdle, m.GetState(1))
	assert.Empty(t, m.Draft(1))
	assert.Empty(t, m.Attachments(1))
	assert.Zero(t, m.ActiveTicket(1))
	ids, page := m.Pagination(1)
	assert.Empty(t, ids)
	assert.Zero(t, page)
}

func TestTouchUpdatesLastActivity(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	m := NewMemoryManagerWithClock(func() time.Time { return now })

	m.SetState(1, StateChattingOnTicket)
	first := m.Get(1).LastActivityAt
	assert.Equal(t, now, first)

	now = now.Add(30 * time.Minute)
	m.Touch(1)
	assert.Equal(t, first.Add(30*time.Minute), m.Get(1).LastActivityAt)
}

func TestRangeSeesAllSessions(t *testing.T) {
	m := NewMemoryManager()
	m.SetState(1, StateChattingOnTicket)
	m.SetState(2, StateIdle)

	seen := map[int64]State{}
	m.Range(func(s Session) { seen[s.ChatID] = s.State })

	assert.Equal(t, map[int64]State{1: StateChattingOnTicket, 2: StateIdle}, seen)
}

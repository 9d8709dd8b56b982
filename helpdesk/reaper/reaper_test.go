package reaper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"helpdeskbot/helpdesk/session"
)

type recordingSender struct {
	sent []string
}

func (s *recordingSender) SendText(chatID, text string, _ bool) error {
	s.sent = append(s.sent, chatID)
	return nil
}

func newTestReaper(clock *time.Time) (*Reaper, session.Manager, *recordingSender) {
	sessions := session.NewMemoryManagerWithClock(func() time.Time { return *clock })
	sender := &recordingSender{}
	r := New(sessions, sender)
	r.now = func() time.Time { return *clock }
	return r, sessions, sender
}

func TestSweepResetsStaleBinding(t *testing.T) {
	clock := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	r, sessions, sender := newTestReaper(&clock)

	sessions.SetActiveTicket(100, 7)
	sessions.SetState(100, session.StateChattingOnTicket)
	sessions.Touch(100)

	clock = clock.Add(7 * time.Hour)
	r.Sweep()

	assert.Zero(t, sessions.ActiveTicket(100))
	assert.Equal(t, session.StateIdle, sessions.GetState(100))
	assert.Equal(t, []string{"100"}, sender.sent)
}

func TestSweepNotifiesOnlyOnce(t *testing.T) {
	clock := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	r, sessions, sender := newTestReaper(&clock)

	sessions.SetActiveTicket(100, 7)
	sessions.Touch(100)

	clock = clock.Add(7 * time.Hour)
	r.Sweep()
	r.Sweep()

	assert.Len(t, sender.sent, 1, "a reaped session must not be notified again")
}

func TestSweepLeavesFreshSessionsAlone(t *testing.T) {
	clock := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	r, sessions, sender := newTestReaper(&clock)

	sessions.SetActiveTicket(100, 7)
	sessions.Touch(100)

	clock = clock.Add(5 * time.Hour)
	r.Sweep()

	assert.Equal(t, int64(7), sessions.ActiveTicket(100))
	assert.Empty(t, sender.sent)
}

func TestSweepSkipsUnboundSessions(t *testing.T) {
	clock := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	r, sessions, sender := newTestReaper(&clock)

	sessions.SetState(100, session.StateAwaitingEmail)
	sessions.Touch(100)

	clock = clock.Add(48 * time.Hour)
	r.Sweep()

	// Wizard state is not a live binding; only active tickets are reaped.
	assert.Equal(t, session.StateAwaitingEmail, sessions.GetState(100))
	assert.Empty(t, sender.sent)
}

func TestSweepEmptyStore(t *testing.T) {
	clock := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	r, _, sender := newTestReaper(&clock)

	r.Sweep()

	assert.Empty(t, sender.sent)
}

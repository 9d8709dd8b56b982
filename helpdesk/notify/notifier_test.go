package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdeskbot/helpdesk/models"
	"helpdeskbot/helpdesk/session"
	"helpdeskbot/helpdesk/storage"
)

type fakeStore struct {
	ticket   *models.Ticket
	messages []models.Message
	created  []storage.NewMessage
}

func (s *fakeStore) CreateWebMessage(_ context.Context, nm storage.NewMessage) (*models.Message, error) {
	s.created = append(s.created, nm)
	return &models.Message{ID: int64(len(s.created)), TicketID: nm.TicketID, SenderID: nm.SenderID, SenderName: nm.SenderName, Content: nm.Content, CreatedAt: nm.CreatedAt}, nil
}

func (s *fakeStore) TicketByID(_ context.Context, ticketID int64) (*models.Ticket, error) {
	return s.ticket, nil
}

func (s *fakeStore) TicketThread(_ context.Context, _ int64) ([]models.Message, map[int64][]models.Attachment, []models.Attachment, error) {
	return s.messages, nil, nil, nil
}

type sentText struct {
	chatID string
	text   string
}

type fakeTransport struct {
	texts  []sentText
	alerts []sentText
}

func (t *fakeTransport) SendText(chatID, text string, _ bool) error {
	t.texts = append(t.texts, sentText{chatID, text})
	return nil
}

func (t *fakeTransport) SendPhoto(chatID, path, caption string) error { return nil }

func (t *fakeTransport) SendDocument(chatID, path, caption, displayName string) error { return nil }

func (t *fakeTransport) SendTicketAlert(chatID, text string, _ int64, _ string) error {
	t.alerts = append(t.alerts, sentText{chatID, text})
	return nil
}

func newTestNotifier(store *fakeStore, transport *fakeTransport, sessions session.Manager, now time.Time) *Notifier {
	return New(Options{
		Store:     store,
		Sessions:  sessions,
		Transport: transport,
		Now:       func() time.Time { return now },
	})
}

func TestOnNewMessageFromWebPushesAlert(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{ticket: &models.Ticket{ID: 7, Title: "Не работает принтер"}}
	transport := &fakeTransport{}
	sessions := session.NewMemoryManagerWithClock(func() time.Time { return base })

	n := newTestNotifier(store, transport, sessions, base)
	require.NoError(t, n.OnNewMessageFromWeb(context.Background(), 7, "Оператор", "Проверьте кабель", "100", base))

	require.Len(t, store.created, 1)
	assert.Equal(t, "web", store.created[0].SenderID)
	assert.Equal(t, "Оператор", store.created[0].SenderName)

	require.Len(t, transport.alerts, 1)
	assert.Equal(t, "100", transport.alerts[0].chatID)
	assert.Contains(t, transport.alerts[0].text, "Не работает принтер")
}

func TestOnNewMessageFromWebDropsDuplicateBeforePersist(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{ticket: &models.Ticket{ID: 7, Title: "Принтер"}}
	transport := &fakeTransport{}
	sessions := session.NewMemoryManagerWithClock(func() time.Time { return base })

	n := newTestNotifier(store, transport, sessions, base)
	require.NoError(t, n.OnNewMessageFromWeb(context.Background(), 7, "Оператор", "Привет", "100", base))
	require.NoError(t, n.OnNewMessageFromWeb(context.Background(), 7, "Оператор", "Привет", "100", base.Add(2*time.Second)))

	assert.Len(t, store.created, 1, "duplicate must be dropped before persistence")
	assert.Len(t, transport.alerts, 1)
}

func TestOnNewMessageFromWebThrottlesRepeatedAlerts(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{ticket: &models.Ticket{ID: 7, Title: "Принтер"}}
	transport := &fakeTransport{}
	sessions := session.NewMemoryManagerWithClock(func() time.Time { return base })

	n := newTestNotifier(store, transport, sessions, base)
	require.NoError(t, n.OnNewMessageFromWeb(context.Background(), 7, "Оператор", "Первый ответ", "100", base))
	require.NoError(t, n.OnNewMessageFromWeb(context.Background(), 7, "Оператор", "Второй ответ", "100", base.Add(10*time.Minute)))

	assert.Len(t, store.created, 2, "non-duplicate messages persist even when the alert is throttled")
	assert.Len(t, transport.alerts, 1)
}

func TestOnNewMessageFromWebForwardsLiveToActiveTicket(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{
		ticket: &models.Ticket{ID: 7, Title: "Принтер"},
		messages: []models.Message{
			{ID: 1, TicketID: 7, SenderName: "Оператор", Content: "Проверьте кабель", CreatedAt: base},
		},
	}
	transport := &fakeTransport{}
	sessions := session.NewMemoryManagerWithClock(func() time.Time { return base })
	sessions.SetActiveTicket(100, 7)

	n := newTestNotifier(store, transport, sessions, base)
	// Use up the alert window first; live forwarding must ignore it.
	n.limiter.ShouldPush("100", 7, base)

	require.NoError(t, n.OnNewMessageFromWeb(context.Background(), 7, "Оператор", "Проверьте кабель", "100", base))

	assert.Empty(t, transport.alerts)
	require.NotEmpty(t, transport.texts)
	assert.Equal(t, "Чат очищен. История выбранной заявки:", transport.texts[0].text)
}

func TestOnNewMessageFromWebUnroutableChatID(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{ticket: &models.Ticket{ID: 7, Title: "Принтер"}}
	transport := &fakeTransport{}
	sessions := session.NewMemoryManagerWithClock(func() time.Time { return base })

	n := newTestNotifier(store, transport, sessions, base)
	require.NoError(t, n.OnNewMessageFromWeb(context.Background(), 7, "Оператор", "Привет", "not-a-chat", base))

	assert.Len(t, store.created, 1, "message persists even when the chat id cannot be routed")
	assert.Empty(t, transport.alerts)
	assert.Empty(t, transport.texts)
}

func TestReplayThreadEmptyTicket(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{ticket: &models.Ticket{ID: 7, Title: "Принтер"}}
	transport := &fakeTransport{}
	sessions := session.NewMemoryManagerWithClock(func() time.Time { return base })

	n := newTestNotifier(store, transport, sessions, base)
	require.NoError(t, n.ReplayThread(context.Background(), 100, 7))

	require.Len(t, transport.texts, 5)
	assert.Equal(t, "Чат очищен. История выбранной заявки:", transport.texts[0].text)
	assert.Equal(t, "---", transport.texts[1].text)
	assert.Equal(t, "В этой заявке пока нет сообщений.", transport.texts[4].text)
}

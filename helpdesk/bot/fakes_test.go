package bot

import (
	"context"

	tele "gopkg.in/telebot.v4"

	"helpdeskbot/helpdesk/models"
	"helpdeskbot/helpdesk/session"
	"helpdeskbot/helpdesk/storage"
)

// fakeContext implements the handful of tele.Context methods the handlers
// touch; everything else panics through the embedded nil interface.
type fakeContext struct {
	tele.Context
	chat *tele.Chat
	text string
	msg  *tele.Message
	cb   *tele.Callback
	vals map[string]interface{}
	sent []string
}

func newFakeContext(chatID int64, text string) *fakeContext {
	return &fakeContext{
		chat: &tele.Chat{ID: chatID},
		text: text,
		vals: make(map[string]interface{}),
	}
}

func newFakeCallback(chatID int64, key, payload string) *fakeContext {
	c := newFakeContext(chatID, "")
	c.cb = &tele.Callback{Data: key + "|" + payload}
	return c
}

func (f *fakeContext) Chat() *tele.Chat         { return f.chat }
func (f *fakeContext) Sender() *tele.User       { return &tele.User{ID: f.chat.ID} }
func (f *fakeContext) Update() tele.Update      { return tele.Update{} }
func (f *fakeContext) Message() *tele.Message   { return f.msg }
func (f *fakeContext) Callback() *tele.Callback { return f.cb }
func (f *fakeContext) Text() string             { return f.text }

func (f *fakeContext) Get(key string) interface{}      { return f.vals[key] }
func (f *fakeContext) Set(key string, val interface{}) { f.vals[key] = val }

func (f *fakeContext) Send(what interface{}, _ ...interface{}) error {
	if s, ok := what.(string); ok {
		f.sent = append(f.sent, s)
	}
	return nil
}

func (f *fakeContext) Edit(_ interface{}, _ ...interface{}) error { return nil }

func (f *fakeContext) Respond(_ ...*tele.CallbackResponse) error { return nil }

func (f *fakeContext) lastSent() string {
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

type createdTicket struct {
	ticket      storage.NewTicket
	attachments []storage.NewAttachment
}

// fakeStore implements Store in memory.
type fakeStore struct {
	user    *models.User
	userErr error

	categories []models.TicketCategory
	tickets    []models.Ticket

	createdUsers  []storage.NewUser
	createUserErr error

	createdTickets  []createdTicket
	createTicketErr error

	messages []storage.NewMessage
}

func (s *fakeStore) GetUserByTelegramID(_ context.Context, _ int64) (*models.User, error) {
	if s.userErr != nil {
		return nil, s.userErr
	}
	if s.user == nil {
		return nil, storage.ErrNotFound
	}
	return s.user, nil
}

func (s *fakeStore) CreateUser(_ context.Context, nu storage.NewUser) (*models.User, error) {
	if s.createUserErr != nil {
		return nil, s.createUserErr
	}
	s.createdUsers = append(s.createdUsers, nu)
	return &models.User{ID: int64(len(s.createdUsers)), FullName: nu.FullName, ChatID: nu.ChatID}, nil
}

func (s *fakeStore) PendingUsers(_ context.Context) ([]models.User, error) { return nil, nil }

func (s *fakeStore) ActiveCategories(_ context.Context) ([]models.TicketCategory, error) {
	return s.categories, nil
}

func (s *fakeStore) CategoryByID(_ context.Context, id int64) (*models.TicketCategory, error) {
	for _, cat := range s.categories {
		if cat.ID == id {
			return &cat, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) CreateTicket(_ context.Context, nt storage.NewTicket, attachments []storage.NewAttachment) (*models.Ticket, error) {
	if s.createTicketErr != nil {
		return nil, s.createTicketErr
	}
	s.createdTickets = append(s.createdTickets, createdTicket{ticket: nt, attachments: attachments})
	return &models.Ticket{ID: 77, Title: nt.Title, Status: models.StatusNew}, nil
}

func (s *fakeStore) TicketsByCreator(_ context.Context, _ string) ([]models.Ticket, error) {
	return s.tickets, nil
}

func (s *fakeStore) TicketForCreator(_ context.Context, ticketID int64, _ string) (*models.Ticket, error) {
	for _, t := range s.tickets {
		if t.ID == ticketID {
			return &t, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) CreateUserMessage(_ context.Context, nm storage.NewMessage) (*models.Message, error) {
	s.messages = append(s.messages, nm)
	return &models.Message{ID: int64(len(s.messages)), TicketID: nm.TicketID}, nil
}

func confirmedUser(chatID string) *models.User {
	return &models.User{
		ID:          1,
		FullName:    "Иванов Иван Иванович",
		ChatID:      chatID,
		IsActive:    true,
		IsConfirmed: true,
	}
}

func newTestBot(store *fakeStore) (*Bot, session.Manager) {
	sessions := session.NewMemoryManager()
	b := New(Options{
		Store:    store,
		Sessions: sessions,
	})
	return b, sessions
}

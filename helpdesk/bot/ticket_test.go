package bot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdeskbot/helpdesk/models"
	"helpdeskbot/helpdesk/session"
)

func printerCategory() []models.TicketCategory {
	return []models.TicketCategory{{ID: 3, Name: "Оборудование", IsActive: true}}
}

func TestTicketWizardCreatesTicket(t *testing.T) {
	store := &fakeStore{user: confirmedUser("100"), categories: printerCategory()}
	b, sessions := newTestBot(store)
	chatID := int64(100)

	require.NoError(t, b.handleNewTicket(newFakeContext(chatID, "/new_ticket")))
	assert.Equal(t, session.StateAwaitingTicketCategory, sessions.GetState(chatID))

	require.NoError(t, b.cbCategory(newFakeCallback(chatID, "category", "3")))
	assert.Equal(t, session.StateAwaitingTicketTitle, sessions.GetState(chatID))

	// A too-short title re-prompts without advancing.
	short := newFakeContext(chatID, "аб")
	require.NoError(t, b.stepTitle(short))
	assert.Equal(t, session.StateAwaitingTicketTitle, sessions.GetState(chatID))

	require.NoError(t, b.stepTitle(newFakeContext(chatID, "Не работает принтер")))
	require.NoError(t, b.stepDescription(newFakeContext(chatID, "Принтер в кабинете 214 не печатает")))
	assert.Equal(t, session.StateCollectingAttachments, sessions.GetState(chatID))

	done := newFakeContext(chatID, "Готово")
	require.NoError(t, b.stepAttachments(done))

	require.Len(t, store.createdTickets, 1)
	created := store.createdTickets[0]
	assert.Equal(t, "Не работает принтер", created.ticket.Title)
	assert.Equal(t, "Принтер в кабинете 214 не печатает", created.ticket.Description)
	assert.Equal(t, int64(3), created.ticket.CategoryID)
	assert.Equal(t, "100", created.ticket.CreatorChatID)
	assert.Empty(t, created.attachments)

	assert.Equal(t, session.StateIdle, sessions.GetState(chatID))
	assert.Empty(t, sessions.Attachments(chatID))
	assert.Contains(t, done.lastSent(), "#77")
}

func TestTicketCommitFailureKeepsDraftAndAttachments(t *testing.T) {
	store := &fakeStore{
		user:            confirmedUser("105"),
		categories:      printerCategory(),
		createTicketErr: errors.New("connection refused"),
	}
	b, sessions := newTestBot(store)
	chatID := int64(105)

	sessions.SetDraft(chatID, draftCategoryID, "3")
	sessions.SetDraft(chatID, draftCategoryName, "Оборудование")
	sessions.SetDraft(chatID, draftTitle, "Не работает принтер")
	sessions.SetDraft(chatID, draftDescription, "Принтер не печатает")
	sessions.AddAttachment(chatID, session.PendingAttachment{
		Kind:      "document",
		FileName:  "scan.pdf",
		LocalPath: "uploads/105_scan.pdf",
	})
	sessions.SetState(chatID, session.StateCollectingAttachments)

	first := newFakeContext(chatID, "Готово")
	require.NoError(t, b.stepAttachments(first))

	assert.Empty(t, store.createdTickets)
	assert.Equal(t, session.StateCollectingAttachments, sessions.GetState(chatID))
	assert.Equal(t, "Не работает принтер", sessions.Draft(chatID)[draftTitle])
	assert.Len(t, sessions.Attachments(chatID), 1)
	assert.Contains(t, first.lastSent(), "Попробуйте отправить 'Готово' ещё раз")

	store.createTicketErr = nil
	second := newFakeContext(chatID, "готово")
	require.NoError(t, b.stepAttachments(second))

	require.Len(t, store.createdTickets, 1)
	created := store.createdTickets[0]
	require.Len(t, created.attachments, 1)
	assert.Equal(t, "scan.pdf", created.attachments[0].FileName)
	assert.Equal(t, "uploads/105_scan.pdf", created.attachments[0].FilePath)
	assert.Equal(t, session.StateIdle, sessions.GetState(chatID))
	assert.Contains(t, second.lastSent(), "Прикреплено файлов: 1")
}

func TestCategoryCallbackRejectsUnknownCategory(t *testing.T) {
	store := &fakeStore{user: confirmedUser("106"), categories: printerCategory()}
	b, sessions := newTestBot(store)
	chatID := int64(106)
	sessions.SetState(chatID, session.StateAwaitingTicketCategory)

	c := newFakeCallback(chatID, "category", "99")
	require.NoError(t, b.cbCategory(c))

	assert.Equal(t, session.StateIdle, sessions.GetState(chatID))
	assert.Contains(t, c.lastSent(), "категория не найдена")
}

func TestCategoryCallbackRequiresFreshSession(t *testing.T) {
	store := &fakeStore{user: confirmedUser("107"), categories: printerCategory()}
	b, sessions := newTestBot(store)
	chatID := int64(107)

	c := newFakeCallback(chatID, "category", "3")
	require.NoError(t, b.cbCategory(c))

	assert.Equal(t, session.StateIdle, sessions.GetState(chatID))
	assert.Contains(t, c.lastSent(), "Сессия устарела")
}

func TestNewTicketBlockedForUnconfirmedUser(t *testing.T) {
	user := confirmedUser("108")
	user.IsConfirmed = false
	store := &fakeStore{user: user, categories: printerCategory()}
	b, sessions := newTestBot(store)
	chatID := int64(108)

	c := newFakeContext(chatID, "/new_ticket")
	require.NoError(t, b.handleNewTicket(c))

	assert.Equal(t, session.StateIdle, sessions.GetState(chatID))
	assert.Contains(t, c.lastSent(), "ожидает подтверждения")
}

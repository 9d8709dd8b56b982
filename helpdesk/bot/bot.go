// Package bot implements the Telegram-facing side of the helpdesk: the
// registration and ticket wizards, ticket browsing, and the live ticket chat.
package bot

import (
	"context"
	"errors"
	"strconv"

	tghelpers "helpdeskbot/core/telegram/helpers"
	"helpdeskbot/helpdesk/models"
	"helpdeskbot/helpdesk/notify"
	"helpdeskbot/helpdesk/session"
	"helpdeskbot/helpdesk/storage"

	tele "gopkg.in/telebot.v4"
)

// Store is the persistent surface the handlers depend on. *storage.Store
// satisfies it; tests substitute fakes.
type Store interface {
	GetUserByTelegramID(ctx context.Context, tgID int64) (*models.User, error)
	CreateUser(ctx context.Context, nu storage.NewUser) (*models.User, error)
	PendingUsers(ctx context.Context) ([]models.User, error)
	ActiveCategories(ctx context.Context) ([]models.TicketCategory, error)
	CategoryByID(ctx context.Context, id int64) (*models.TicketCategory, error)
	CreateTicket(ctx context.Context, nt storage.NewTicket, attachments []storage.NewAttachment) (*models.Ticket, error)
	TicketsByCreator(ctx context.Context, chatID string) ([]models.Ticket, error)
	TicketForCreator(ctx context.Context, ticketID int64, chatID string) (*models.Ticket, error)
	CreateUserMessage(ctx context.Context, nm storage.NewMessage) (*models.Message, error)
}

// Options wires the bot's collaborators together.
type Options struct {
	Store      Store
	Sessions   session.Manager
	Notifier   *notify.Notifier
	UploadDir  string
	PolicyPath string
	AdminID    int64
}

// Bot holds the handlers for every command, callback and wizard step.
type Bot struct {
	store      Store
	sessions   session.Manager
	notifier   *notify.Notifier
	uploadDir  string
	policyPath string
	adminID    int64
}

// New creates a Bot. Call RegisterFlows afterwards to bind its wizard steps.
func New(opts Options) *Bot {
	return &Bot{
		store:      opts.Store,
		sessions:   opts.Sessions,
		notifier:   opts.Notifier,
		uploadDir:  opts.UploadDir,
		policyPath: opts.PolicyPath,
		adminID:    opts.AdminID,
	}
}

func chatKey(c tele.Context) string {
	return strconv.FormatInt(c.Chat().ID, 10)
}

func (b *Bot) touch(c tele.Context) {
	b.sessions.Touch(c.Chat().ID)
}

// requireUser checks the account bound to the chat: it must exist, be
// active, and be confirmed by an administrator. On failure the user gets an
// explanation and the caller should stop.
func (b *Bot) requireUser(ctx context.Context, c tele.Context) (*models.User, bool) {
	user, err := tghelpers.CurrentUser[*models.User](ctx, b.store, c.Chat().ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			_ = tghelpers.SendText(c, "Вы не зарегистрированы в системе. Используйте /start для регистрации.")
			return nil, false
		}
		_ = tghelpers.SendText(c, "Произошла ошибка. Попробуйте позднее.")
		return nil, false
	}
	if !user.IsActive {
		_ = tghelpers.SendText(c, "❌ Ваш аккаунт заблокирован. Обратитесь к администратору системы для выяснения причин.")
		return user, false
	}
	if !user.IsConfirmed {
		_ = tghelpers.SendText(c, "⚠️ Ваш аккаунт ожидает подтверждения администратором.\n\nНекоторые функции ограничены до проверки. Используйте /profile для просмотра статуса.")
		return user, false
	}
	return user, true
}

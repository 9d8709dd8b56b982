package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"helpdeskbot/core/logger"
	tgformat "helpdeskbot/core/telegram/format"
	"helpdeskbot/helpdesk/models"
	"helpdeskbot/helpdesk/session"
	"helpdeskbot/helpdesk/storage"
	"log/slog"
)

// Transport sends outbound content to a chat. Implementations must not
// panic past the caller; every send fails independently.
type Transport interface {
	SendText(chatID, text string, formatted bool) error
	SendPhoto(chatID, path, caption string) error
	SendDocument(chatID, path, caption, displayName string) error
	SendTicketAlert(chatID, text string, ticketID int64, ticketTitle string) error
}

// ThreadStore is the subset of the persistent store the notifier reads.
type ThreadStore interface {
	CreateWebMessage(ctx context.Context, nm storage.NewMessage) (*models.Message, error)
	TicketByID(ctx context.Context, ticketID int64) (*models.Ticket, error)
	TicketThread(ctx context.Context, ticketID int64) ([]models.Message, map[int64][]models.Attachment, []models.Attachment, error)
}

// Notifier routes dashboard replies to Telegram, deciding between a live
// thread forward and a throttled alert based on the chat's active ticket.
type Notifier struct {
	store     ThreadStore
	sessions  session.Manager
	transport Transport
	dedup     *Deduplicator
	limiter   *RateLimiter
	uploadDir string
	now       func() time.Time
}

// Options configures a Notifier.
type Options struct {
	Store     ThreadStore
	Sessions  session.Manager
	Transport Transport
	UploadDir string
	// Now overrides the clock in tests.
	Now func() time.Time
}

// New constructs a Notifier with fresh dedup and rate-limit state.
func New(opts Options) *Notifier {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Notifier{
		store:     opts.Store,
		sessions:  opts.Sessions,
		transport: opts.Transport,
		dedup:     NewDeduplicator(),
		limiter:   NewRateLimiter(),
		uploadDir: opts.UploadDir,
		now:       now,
	}
}

// OnNewMessageFromWeb is invoked by the dashboard whenever staff post a
// reply. Duplicates within the dedup window are dropped before persistence;
// surviving messages are stored and then either forwarded live (active
// ticket matches) or pushed as a rate-limited alert.
func (n *Notifier) OnNewMessageFromWeb(ctx context.Context, ticketID int64, senderName, text, chatID string, at time.Time) error {
	if at.IsZero() {
		at = n.now()
	}

	if n.dedup.IsDuplicate(chatID, text, at) {
		logger.NOTIFY.Info("duplicate message dropped",
			slog.String("event", "notify.dedup"),
			slog.String("status", "skip"),
			slog.Int64("ticket_id", ticketID),
			slog.String("dedup", "hit"),
		)
		return nil
	}

	if _, err := n.store.CreateWebMessage(ctx, storage.NewMessage{
		TicketID:   ticketID,
		SenderID:   "web",
		SenderName: senderName,
		Content:    text,
		CreatedAt:  at,
	}); err != nil {
		return fmt.Errorf("notify: persist message: %w", err)
	}

	ticket, err := n.store.TicketByID(ctx, ticketID)
	if err != nil {
		return fmt.Errorf("notify: load ticket: %w", err)
	}

	numericChat, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		logger.NOTIFY.Warn("unroutable chat id",
			slog.String("event", "notify.route"),
			slog.String("status", "skip"),
			slog.Int64("ticket_id", ticketID),
			slog.String("err", err.Error()),
		)
		return nil
	}

	if n.sessions.ActiveTicket(numericChat) == ticketID {
		// Live mode: the user is already looking at the thread, so the
		// limiter is bypassed and the full thread is re-forwarded.
		if err := n.ReplayThread(ctx, numericChat, ticketID); err != nil {
			return fmt.Errorf("notify: live forward: %w", err)
		}
		return nil
	}

	if !n.limiter.ShouldPush(chatID, ticketID, n.now()) {
		logger.NOTIFY.Debug("alert suppressed",
			slog.String("event", "notify.push"),
			slog.String("status", "rate_limited"),
			slog.Int64("ticket_id", ticketID),
		)
		return nil
	}

	alert := fmt.Sprintf("🔔 В заявке <b>%s</b> новое сообщение.", tgformat.EscapeHTML(ticket.Title))
	if err := n.transport.SendTicketAlert(chatID, alert, ticketID, ticket.Title); err != nil {
		logger.NOTIFY.Error("alert send failed",
			slog.String("event", "notify.push"),
			slog.String("status", "fail"),
			slog.Int64("ticket_id", ticketID),
			slog.String("err", err.Error()),
		)
		return nil
	}

	logger.NOTIFY.Info("alert pushed",
		slog.String("event", "notify.push"),
		slog.String("status", "ok"),
		slog.Int64("ticket_id", ticketID),
	)
	return nil
}

// ReplayThread sends the most recent messages of a ticket to the chat in
// chronological order, delivering message attachments inline (the message
// text rides as the caption of its first file) and ticket-level attachments
// afterwards.
func (n *Notifier) ReplayThread(ctx context.Context, chatID, ticketID int64) error {
	chat := strconv.FormatInt(chatID, 10)

	_ = n.transport.SendText(chat, "Чат очищен. История выбранной заявки:", false)
	for i := 0; i < 3; i++ {
		_ = n.transport.SendText(chat, "---", false)
	}

	messages, byMessage, ticketLevel, err := n.store.TicketThread(ctx, ticketID)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	if len(messages) == 0 {
		_ = n.transport.SendText(chat, "В этой заявке пока нет сообщений.", false)
	}

	for _, msg := range messages {
		header := fmt.Sprintf("<b>%s</b> (%s)", tgformat.EscapeHTML(msg.SenderName), msg.CreatedAt.Format("02.01.2006 15:04"))
		text := header
		if msg.Content != "" {
			text = header + ":\n" + tgformat.EscapeHTML(msg.Content)
		}

		attachments := byMessage[msg.ID]
		if len(attachments) == 0 {
			if err := n.transport.SendText(chat, text, true); err != nil {
				logger.NOTIFY.Warn("replay message send failed",
					slog.String("event", "notify.replay"),
					slog.Int64("ticket_id", ticketID),
					slog.String("err", err.Error()),
				)
			}
			continue
		}

		caption := text
		for _, att := range attachments {
			n.sendAttachment(chat, ticketID, att, caption)
			caption = ""
		}
	}

	for _, att := range ticketLevel {
		n.sendAttachment(chat, ticketID, att, "Вложение к заявке")
	}

	return nil
}

func (n *Notifier) sendAttachment(chat string, ticketID int64, att models.Attachment, caption string) {
	path := att.FilePath
	if !filepath.IsAbs(path) && n.uploadDir != "" && filepath.Dir(path) == "." {
		path = filepath.Join(n.uploadDir, path)
	}
	if _, err := os.Stat(path); err != nil {
		_ = n.transport.SendText(chat, "Файл не найден: "+att.FileName, false)
		return
	}

	var err error
	if att.IsImage {
		err = n.transport.SendPhoto(chat, path, caption)
	} else {
		err = n.transport.SendDocument(chat, path, caption, att.FileName)
	}
	if err != nil {
		logger.NOTIFY.Warn("attachment send failed",
			slog.String("event", "notify.replay"),
			slog.Int64("ticket_id", ticketID),
			slog.String("err", err.Error()),
		)
		_ = n.transport.SendText(chat, "[Ошибка отправки файла] "+att.FileName, false)
	}
}

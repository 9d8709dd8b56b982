package bot

import (
	"context"
	"fmt"
	"strconv"

	"helpdeskbot/core/logger"
	coretelegram "helpdeskbot/core/telegram"
	tgformat "helpdeskbot/core/telegram/format"
	"helpdeskbot/core/telegram/sender"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// Transport delivers chat-id addressed sends originating outside the update
// loop: dashboard notifications, thread replays and reaper resets. It owns a
// dedicated single-worker dispatcher so deliveries to a chat keep their
// order while still being enqueued from other goroutines.
type Transport struct {
	bot  *tele.Bot
	disp *sender.Dispatcher
}

// NewTransport builds the outbound transport for the given bot token.
func NewTransport(token string) (*Transport, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:   token,
		Offline: true,
		Client:  coretelegram.BuildHTTPClient(),
	})
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	return &Transport{
		bot: b,
		disp: sender.NewDispatcher(sender.Options{
			Workers: 1,
		}),
	}, nil
}

// Close drains the outbound queue.
func (t *Transport) Close() {
	t.disp.Close()
}

func (t *Transport) enqueue(action, endpoint string, run func() error) error {
	if err := t.disp.Enqueue(context.Background(), action, endpoint, run); err != nil {
		logger.NOTIFY.Warn("outbound enqueue failed",
			slog.String("event", "transport.enqueue"),
			slog.String("status", "fallback"),
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return nil
}

func recipient(chatID string) (tele.Recipient, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("transport: bad chat id %q: %w", chatID, err)
	}
	return tele.ChatID(id), nil
}

// SendText delivers plain or HTML-formatted text. A formatted send that the
// API rejects is retried once with the tags stripped before giving up.
func (t *Transport) SendText(chatID, text string, formatted bool) error {
	to, err := recipient(chatID)
	if err != nil {
		return err
	}
	return t.enqueue("send.text", "sendMessage", func() error {
		if !formatted {
			_, err := t.bot.Send(to, text)
			return err
		}
		if _, err := t.bot.Send(to, text, tele.ModeHTML); err == nil {
			return nil
		}
		_, err := t.bot.Send(to, tgformat.StripTags(text))
		return err
	})
}

// SendPhoto delivers an image from local disk with an optional caption.
func (t *Transport) SendPhoto(chatID, path, caption string) error {
	to, err := recipient(chatID)
	if err != nil {
		return err
	}
	return t.enqueue("send.photo", "sendPhoto", func() error {
		photo := &tele.Photo{File: tele.FromDisk(path), Caption: caption}
		if _, err := t.bot.Send(to, photo, tele.ModeHTML); err == nil {
			return nil
		}
		photo.Caption = tgformat.StripTags(caption)
		_, err := t.bot.Send(to, photo)
		return err
	})
}

// SendDocument delivers a file from local disk under its original name.
func (t *Transport) SendDocument(chatID, path, caption, displayName string) error {
	to, err := recipient(chatID)
	if err != nil {
		return err
	}
	return t.enqueue("send.document", "sendDocument", func() error {
		doc := &tele.Document{File: tele.FromDisk(path), FileName: displayName, Caption: caption}
		if _, err := t.bot.Send(to, doc, tele.ModeHTML); err == nil {
			return nil
		}
		doc.Caption = tgformat.StripTags(caption)
		_, err := t.bot.Send(to, doc)
		return err
	})
}

// SendTicketAlert delivers a new-message alert with an inline button that
// binds the chat to the ticket when pressed.
func (t *Transport) SendTicketAlert(chatID, text string, ticketID int64, ticketTitle string) error {
	to, err := recipient(chatID)
	if err != nil {
		return err
	}
	markup := &tele.ReplyMarkup{}
	btn := markup.Data("Открыть заявку: "+ticketTitle, "select_ticket", strconv.FormatInt(ticketID, 10))
	markup.InlineKeyboard = [][]tele.InlineButton{{*btn.Inline()}}

	return t.enqueue("send.alert", "sendMessage", func() error {
		if _, err := t.bot.Send(to, text, &tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: markup}); err == nil {
			return nil
		}
		_, err := t.bot.Send(to, tgformat.StripTags(text), &tele.SendOptions{ReplyMarkup: markup})
		return err
	})
}

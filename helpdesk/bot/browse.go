package bot

import (
	"errors"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"helpdeskbot/core/telegram/callbacks"
	tgformat "helpdeskbot/core/telegram/format"
	tghelpers "helpdeskbot/core/telegram/helpers"
	"helpdeskbot/helpdesk/models"
	"helpdeskbot/helpdesk/session"
	"helpdeskbot/helpdesk/storage"

	tele "gopkg.in/telebot.v4"
)

const ticketsPerPage = 3

const maxTitleButtonLen = 25

func statusLabel(status string) string {
	switch status {
	case models.StatusNew:
		return "Новая"
	case models.StatusInProgress:
		return "В работе"
	case models.StatusResolved:
		return "Решена"
	case models.StatusIrrelevant:
		return "Неактуальна"
	default:
		return "Закрыта"
	}
}

func ticketsKeyboard(tickets []models.Ticket, page int) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	var rows [][]tele.InlineButton

	start := page * ticketsPerPage
	end := start + ticketsPerPage
	if end > len(tickets) {
		end = len(tickets)
	}
	for _, t := range tickets[start:end] {
		title := t.Title
		if utf8.RuneCountInString(title) > maxTitleButtonLen {
			title = string([]rune(title)[:maxTitleButtonLen-3]) + "..."
		}
		label := fmt.Sprintf("📅 %s | %s\n📝 %s", t.CreatedAt.Format("02.01.2006"), statusLabel(t.Status), title)
		btn := markup.Data(label, "select_ticket", strconv.FormatInt(t.ID, 10))
		rows = append(rows, []tele.InlineButton{*btn.Inline()})
	}

	pageCount := (len(tickets) + ticketsPerPage - 1) / ticketsPerPage
	var nav []tele.InlineButton
	if page > 0 {
		nav = append(nav, *markup.Data("◀️ Назад", "page", strconv.Itoa(page-1)).Inline())
	}
	nav = append(nav, *markup.Data(fmt.Sprintf("📄 %d/%d", page+1, pageCount), "page_info").Inline())
	if end < len(tickets) {
		nav = append(nav, *markup.Data("Вперед ▶️", "page", strconv.Itoa(page+1)).Inline())
	}
	rows = append(rows, nav)

	markup.InlineKeyboard = rows
	return markup
}

func (b *Bot) handleTickets(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	chatID := c.Chat().ID
	b.touch(c)

	if _, ok := b.requireUser(ctx, c); !ok {
		return nil
	}

	tickets, err := b.store.TicketsByCreator(ctx, chatKey(c))
	if err != nil {
		return err
	}
	if len(tickets) == 0 {
		return tghelpers.SendText(c, "У вас нет заявок. Используйте /new_ticket для создания новой заявки.")
	}

	ids := make([]int64, 0, len(tickets))
	active := 0
	for _, t := range tickets {
		ids = append(ids, t.ID)
		if t.Status == models.StatusNew || t.Status == models.StatusInProgress {
			active++
		}
	}
	b.sessions.SetPagination(chatID, ids, 0)
	b.sessions.SetState(chatID, session.StateBrowsingTickets)

	text := fmt.Sprintf("<b>Ваши заявки (%d)</b>\nАктивных заявок: %d\n\nВыберите заявку из списка ниже:", len(tickets), active)
	return tghelpers.SendHTML(c, text, ticketsKeyboard(tickets, 0))
}

func (b *Bot) cbPage(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	chatID := c.Chat().ID
	b.touch(c)

	page, err := callbacks.PayloadInt(c)
	if err != nil || page < 0 {
		return nil
	}

	tickets, err := b.store.TicketsByCreator(ctx, chatKey(c))
	if err != nil {
		return err
	}
	if len(tickets) == 0 {
		return nil
	}
	pageCount := (len(tickets) + ticketsPerPage - 1) / ticketsPerPage
	if page >= pageCount {
		page = pageCount - 1
	}

	ids := make([]int64, 0, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.ID)
	}
	b.sessions.SetPagination(chatID, ids, page)

	return c.Edit(ticketsKeyboard(tickets, page))
}

// cbPageInfo is the inert page counter button in the middle of the
// navigation row.
func (b *Bot) cbPageInfo(tele.Context) error {
	return nil
}

// stepBrowsing catches free text typed while the ticket list is shown.
func (b *Bot) stepBrowsing(c tele.Context) error {
	b.touch(c)
	return tghelpers.SendText(c, "Выберите заявку кнопкой из списка выше или используйте /new_ticket для создания новой.")
}

func (b *Bot) cbSelectTicket(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	chatID := c.Chat().ID
	b.touch(c)

	ticketID, err := callbacks.PayloadInt64(c)
	if err != nil {
		return nil
	}
	if _, ok := b.requireUser(ctx, c); !ok {
		return nil
	}

	ticket, err := b.store.TicketForCreator(ctx, ticketID, chatKey(c))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Respond(&tele.CallbackResponse{Text: "Заявка не найдена или у вас нет к ней доступа.", ShowAlert: true})
		}
		return err
	}

	if err := tghelpers.SendHTML(c, fmt.Sprintf(
		"Вы выбрали заявку: <b>#%d - %s</b>.\nТеперь ваши сообщения будут направляться в этот чат.",
		ticket.ID, tgformat.EscapeHTML(ticket.Title))); err != nil {
		return err
	}

	if err := b.notifier.ReplayThread(ctx, chatID, ticket.ID); err != nil {
		return err
	}

	b.sessions.SetActiveTicket(chatID, ticket.ID)
	b.sessions.SetState(chatID, session.StateChattingOnTicket)
	return nil
}

// stepChatting forwards free text typed while a ticket is bound into that
// ticket's thread.
func (b *Bot) stepChatting(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	chatID := c.Chat().ID
	b.touch(c)

	msg := c.Message()
	if msg != nil && (msg.Photo != nil || msg.Document != nil) {
		return tghelpers.SendText(c, "Отправка файлов в чат заявки не поддерживается. Чтобы приложить файл, создайте заявку через /new_ticket.")
	}
	if c.Text() == "" {
		return nil
	}

	ticketID := b.sessions.ActiveTicket(chatID)
	if ticketID == 0 {
		b.sessions.SetState(chatID, session.StateIdle)
		return tghelpers.SendText(c, "Активная заявка сброшена. Выберите заявку снова через /tickets.")
	}

	user, ok := b.requireUser(ctx, c)
	if !ok || user == nil {
		return nil
	}

	if _, err := b.store.CreateUserMessage(ctx, storage.NewMessage{
		TicketID:   ticketID,
		SenderID:   chatKey(c),
		SenderName: user.FullName,
		Content:    c.Text(),
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		return tghelpers.SendText(c, "Не удалось отправить сообщение. Попробуйте позднее.")
	}

	return tghelpers.SendText(c, fmt.Sprintf("✉️ Сообщение добавлено в заявку #%d.", ticketID))
}

func (b *Bot) handleMyTickets(c tele.Context) error {
	b.touch(c)
	return tghelpers.SendText(c, "Команда /my_tickets более не используется. Пожалуйста, используйте команду /tickets для просмотра и выбора ваших заявок.")
}

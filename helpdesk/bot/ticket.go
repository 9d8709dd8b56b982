package bot

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"helpdeskbot/core/telegram/callbacks"
	tgformat "helpdeskbot/core/telegram/format"
	tghelpers "helpdeskbot/core/telegram/helpers"
	"helpdeskbot/core/telegram/keyboard"
	"helpdeskbot/helpdesk/session"
	"helpdeskbot/helpdesk/storage"

	tele "gopkg.in/telebot.v4"
)

const (
	draftCategoryID   = "category_id"
	draftCategoryName = "category_name"
	draftTitle        = "title"
	draftDescription  = "description"
)

const (
	minTitleLen       = 3
	minDescriptionLen = 5
)

var doneTokens = map[string]struct{}{
	"готово": {},
	"готов":  {},
	"done":   {},
	"end":    {},
	"finish": {},
}

func (b *Bot) handleNewTicket(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	b.touch(c)

	if _, ok := b.requireUser(ctx, c); !ok {
		return nil
	}

	categories, err := b.store.ActiveCategories(ctx)
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		return tghelpers.SendText(c, "К сожалению, в системе не настроены категории заявок. Обратитесь к администратору.")
	}

	buttons := make([]keyboard.InlineBtn, 0, len(categories))
	for _, cat := range categories {
		buttons = append(buttons, keyboard.InlineBtn{
			Text:   cat.Name,
			Unique: "category",
			Data:   strconv.FormatInt(cat.ID, 10),
		})
	}

	b.sessions.SetState(c.Chat().ID, session.StateAwaitingTicketCategory)
	return tghelpers.SendText(c, "Создание новой заявки. Пожалуйста, выберите категорию заявки:",
		&tele.SendOptions{ReplyMarkup: keyboard.InlineButtons(buttons)})
}

// stepCategoryText catches free text typed while the category keyboard is
// shown.
func (b *Bot) stepCategoryText(c tele.Context) error {
	return tghelpers.SendText(c, "Пожалуйста, выберите категорию кнопкой ниже.")
}

func (b *Bot) cbCategory(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	chatID := c.Chat().ID
	b.touch(c)

	if b.sessions.GetState(chatID) != session.StateAwaitingTicketCategory {
		return tghelpers.SendText(c, "Сессия устарела. Используйте /new_ticket, чтобы начать заново.")
	}

	categoryID, err := callbacks.PayloadInt64(c)
	if err != nil {
		b.sessions.Reset(chatID)
		return tghelpers.SendText(c, "Ошибка: выбранная категория не найдена.")
	}
	category, err := b.store.CategoryByID(ctx, categoryID)
	if err != nil {
		b.sessions.Reset(chatID)
		return tghelpers.SendText(c, "Ошибка: выбранная категория не найдена.")
	}

	b.sessions.SetDraft(chatID, draftCategoryID, strconv.FormatInt(category.ID, 10))
	b.sessions.SetDraft(chatID, draftCategoryName, category.Name)
	b.sessions.SetState(chatID, session.StateAwaitingTicketTitle)

	return tghelpers.SendHTML(c, "Вы выбрали категорию: <b>"+tgformat.EscapeHTML(category.Name)+"</b>.\n\nТеперь введите заголовок заявки:")
}

func validTitle(title string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(title)) >= minTitleLen
}

func validDescription(description string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(description)) >= minDescriptionLen
}

func (b *Bot) stepTitle(c tele.Context) error {
	chatID := c.Chat().ID
	title := strings.TrimSpace(c.Text())
	if !validTitle(title) {
		return tghelpers.SendText(c, "Пожалуйста, введите корректный заголовок (минимум 3 символа):")
	}
	b.sessions.SetDraft(chatID, draftTitle, title)
	b.sessions.SetState(chatID, session.StateAwaitingTicketDescription)
	return tghelpers.SendText(c, "Опишите подробно вашу проблему или вопрос:")
}

func (b *Bot) stepDescription(c tele.Context) error {
	chatID := c.Chat().ID
	description := strings.TrimSpace(c.Text())
	if !validDescription(description) {
		return tghelpers.SendText(c, "Пожалуйста, опишите проблему подробнее (минимум 5 символов):")
	}
	b.sessions.SetDraft(chatID, draftDescription, description)
	b.sessions.SetState(chatID, session.StateCollectingAttachments)

	markup := keyboard.InlineButtonsRows([]keyboard.InlineBtn{{Text: "Готово", Unique: "attachments_done"}})
	return tghelpers.SendHTML(c,
		"Если хотите, прикрепите до 5 файлов (фото, документы, скриншоты, до 5 МБ каждый).\n"+
			"Отправьте файлы по одному или несколько подряд.\n"+
			"Когда закончите, нажмите кнопку <b>\"Готово\"</b> или напишите 'Готово'.", markup)
}

// stepAttachments runs for every update while the wizard is collecting
// files: photos and documents are ingested, the done token commits, and
// anything else re-prompts.
func (b *Bot) stepAttachments(c tele.Context) error {
	msg := c.Message()
	if msg != nil && msg.Photo != nil {
		return b.ingestAttachment(c, msg.Photo.File, "photo", "photo_"+uuid.NewString()+".jpg", true)
	}
	if msg != nil && msg.Document != nil {
		name := msg.Document.FileName
		if name == "" {
			name = "document_" + uuid.NewString()
		}
		return b.ingestAttachment(c, msg.Document.File, "document", name, isImageName(name))
	}

	if _, done := doneTokens[strings.ToLower(strings.TrimSpace(c.Text()))]; done {
		return b.finishAttachments(c)
	}
	return tghelpers.SendText(c, "Пожалуйста, прикрепите файл или нажмите 'Готово', когда закончите.")
}

func isImageName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp":
		return true
	}
	return false
}

func (b *Bot) ingestAttachment(c tele.Context, file tele.File, kind, fileName string, isImage bool) error {
	chatID := c.Chat().ID

	if len(b.sessions.Attachments(chatID)) >= session.MaxAttachments {
		return tghelpers.SendText(c, fmt.Sprintf("Вы уже прикрепили максимальное количество файлов (%d). Нажмите 'Готово' для продолжения.", session.MaxAttachments))
	}
	if file.FileSize >= session.MaxAttachmentSize {
		return tghelpers.SendText(c, "Файл слишком большой (максимум 5 МБ). Пожалуйста, отправьте файл меньшего размера.")
	}

	localPath, err := b.downloadFile(c, file, fileName)
	if err != nil {
		return tghelpers.SendText(c, "Не удалось сохранить файл. Попробуйте еще раз или отправьте другой файл.")
	}

	count, ok := b.sessions.AddAttachment(chatID, session.PendingAttachment{
		FileID:    file.FileID,
		Kind:      kind,
		FileName:  fileName,
		LocalPath: localPath,
		Size:      file.FileSize,
		IsImage:   isImage,
	})
	if !ok {
		return tghelpers.SendText(c, fmt.Sprintf("Вы уже прикрепили максимальное количество файлов (%d). Нажмите 'Готово' для продолжения.", session.MaxAttachments))
	}

	if err := tghelpers.SendHTML(c, fmt.Sprintf("Файл <b>%s</b> успешно прикреплен (%d/%d).", tgformat.EscapeHTML(fileName), count, session.MaxAttachments)); err != nil {
		return err
	}
	if count >= session.MaxAttachments {
		return tghelpers.SendText(c, "Вы достигли лимита файлов. Нажмите 'Готово' для продолжения.")
	}
	return nil
}

// downloadFile fetches the Telegram file into the uploads directory under a
// collision-free name.
func (b *Bot) downloadFile(c tele.Context, file tele.File, fileName string) (string, error) {
	if err := os.MkdirAll(b.uploadDir, 0o755); err != nil {
		return "", err
	}

	rc, err := c.Bot().File(&file)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	localPath := filepath.Join(b.uploadDir, uuid.NewString()+"_"+filepath.Base(fileName))
	out, err := os.Create(localPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		_ = os.Remove(localPath)
		return "", err
	}
	return localPath, nil
}

func (b *Bot) cbAttachmentsDone(c tele.Context) error {
	if b.sessions.GetState(c.Chat().ID) != session.StateCollectingAttachments {
		return tghelpers.SendText(c, "Сессия устарела. Используйте /new_ticket, чтобы начать заново.")
	}
	return b.finishAttachments(c)
}

func (b *Bot) finishAttachments(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	chatID := c.Chat().ID
	b.touch(c)

	user, ok := b.requireUser(ctx, c)
	if !ok || user == nil {
		return nil
	}

	draft := b.sessions.Draft(chatID)
	pending := b.sessions.Attachments(chatID)

	categoryID, _ := strconv.ParseInt(draft[draftCategoryID], 10, 64)
	attachments := make([]storage.NewAttachment, 0, len(pending))
	for _, att := range pending {
		attachments = append(attachments, storage.NewAttachment{
			FileName: att.FileName,
			FilePath: att.LocalPath,
			FileType: att.Kind,
			IsImage:  att.IsImage,
		})
	}

	ticket, err := b.store.CreateTicket(ctx, storage.NewTicket{
		Title:         draft[draftTitle],
		Description:   draft[draftDescription],
		CategoryID:    categoryID,
		CreatorChatID: chatKey(c),
	}, attachments)
	if err != nil {
		// Draft and attachments stay in the session so "Готово" can retry.
		return tghelpers.SendText(c, "Не удалось сохранить заявку. Попробуйте отправить 'Готово' ещё раз.")
	}

	b.sessions.Reset(chatID)
	return tghelpers.SendHTML(c, fmt.Sprintf(
		"Заявка <b>#%d</b> успешно создана!\n\n"+
			"Заголовок: <b>%s</b>\n"+
			"Категория: <b>%s</b>\n"+
			"Статус: Новая\n"+
			"Прикреплено файлов: %d",
		ticket.ID,
		tgformat.EscapeHTML(ticket.Title),
		tgformat.EscapeHTML(draft[draftCategoryName]),
		len(attachments)))
}

package bot

import (
	"errors"
	"strings"
	"time"
	"unicode"

	tghelpers "helpdeskbot/core/telegram/helpers"
	"helpdeskbot/core/telegram/keyboard"
	"helpdeskbot/helpdesk/models"
	"helpdeskbot/helpdesk/session"
	"helpdeskbot/helpdesk/storage"

	tele "gopkg.in/telebot.v4"
)

// Draft keys shared between wizard steps.
const (
	draftFullName    = "full_name"
	draftPosition    = "position"
	draftDepartment  = "department"
	draftOffice      = "office"
	draftPhone       = "phone"
	draftEmail       = "email"
	draftConsent     = "privacy_consent"
	draftConsentDate = "consent_date"
)

// skipToken lets the user leave an optional field empty.
const skipToken = "-"

const consentText = "Добро пожаловать в систему поддержки!\n\n" +
	"Перед регистрацией, пожалуйста, ознакомьтесь с информацией об обработке персональных данных:\n\n" +
	"1. Ваши персональные данные (ФИО, должность, отделение, номер кабинета) будут храниться в защищённой базе данных системы.\n" +
	"2. Данные используются исключительно для идентификации пользователей и обработки заявок.\n" +
	"3. Мы не передаём ваши данные третьим лицам.\n" +
	"4. Вы имеете право на удаление ваших данных из системы по запросу.\n\n" +
	"Для продолжения регистрации, пожалуйста, подтвердите согласие на обработку персональных данных."

func (b *Bot) handleStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	b.touch(c)

	user, err := tghelpers.CurrentUser[*models.User](ctx, b.store, c.Chat().ID)
	switch {
	case err == nil:
		return tghelpers.SendText(c,
			"Привет, "+user.FullName+"! Вы уже зарегистрированы в системе.\n"+
				"Я — бот системы обработки заявок. Вот перечень команд, которые я могу обрабатывать:\n"+
				"/start - Начать работу с ботом или зарегистрироваться\n"+
				"/new_ticket - Создать новую заявку\n"+
				"/tickets - Выбрать активную заявку или просмотреть сообщения по ней\n\n"+
				"Внимание: если в чате не будет активности в течение 6 часов, активная заявка будет очищена, "+
				"и вам потребуется выбрать её снова через команду /tickets.")
	case errors.Is(err, storage.ErrNotFound):
		markup := keyboard.InlineButtonsRows([]keyboard.InlineBtn{
			{Text: "Согласен", Unique: "gdpr_agree"},
			{Text: "Отказаться", Unique: "gdpr_decline"},
		})
		b.sessions.SetState(c.Chat().ID, session.StateAwaitingConsent)
		return tghelpers.SendText(c, consentText, &tele.SendOptions{ReplyMarkup: markup})
	default:
		return err
	}
}

func (b *Bot) cbConsentAgree(c tele.Context) error {
	chatID := c.Chat().ID
	if b.sessions.GetState(chatID) != session.StateAwaitingConsent {
		return tghelpers.SendText(c, "Сессия устарела. Используйте /start, чтобы начать заново.")
	}
	b.sessions.SetDraft(chatID, draftConsent, "true")
	b.sessions.SetDraft(chatID, draftConsentDate, time.Now().UTC().Format(time.RFC3339))
	b.sessions.SetState(chatID, session.StateAwaitingFullName)
	return tghelpers.SendText(c, "Спасибо за согласие! Теперь продолжим процесс регистрации.\nПожалуйста, введите ваше ФИО:")
}

func (b *Bot) cbConsentDecline(c tele.Context) error {
	b.sessions.Reset(c.Chat().ID)
	return tghelpers.SendText(c,
		"Вы отказались от обработки персональных данных.\n"+
			"К сожалению, без этого согласия вы не можете использовать систему поддержки.\n"+
			"Если вы измените решение, используйте команду /start для начала регистрации.")
}

// stepConsent catches free text typed while the consent keyboard is shown.
func (b *Bot) stepConsent(c tele.Context) error {
	return tghelpers.SendText(c, "Пожалуйста, используйте кнопки выше, чтобы согласиться или отказаться.")
}

func validFullName(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	for _, r := range text {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func (b *Bot) stepFullName(c tele.Context) error {
	chatID := c.Chat().ID
	if !validFullName(c.Text()) {
		return tghelpers.SendText(c, "ФИО должно содержать только буквы и пробелы. Пожалуйста, попробуйте снова:")
	}
	b.sessions.SetDraft(chatID, draftFullName, c.Text())
	b.sessions.SetState(chatID, session.StateAwaitingPosition)
	return tghelpers.SendText(c, "Спасибо! Теперь введите вашу должность:")
}

func (b *Bot) stepPosition(c tele.Context) error {
	chatID := c.Chat().ID
	b.sessions.SetDraft(chatID, draftPosition, c.Text())
	b.sessions.SetState(chatID, session.StateAwaitingDepartment)
	return tghelpers.SendText(c, "Спасибо! Теперь введите ваше отделение:")
}

func (b *Bot) stepDepartment(c tele.Context) error {
	chatID := c.Chat().ID
	b.sessions.SetDraft(chatID, draftDepartment, c.Text())
	b.sessions.SetState(chatID, session.StateAwaitingOffice)
	return tghelpers.SendText(c, "Спасибо! Наконец, введите номер вашего кабинета:")
}

func (b *Bot) stepOffice(c tele.Context) error {
	chatID := c.Chat().ID
	b.sessions.SetDraft(chatID, draftOffice, c.Text())
	b.sessions.SetState(chatID, session.StateAwaitingPhone)
	return tghelpers.SendText(c, "Спасибо! Теперь введите ваш номер телефона (можно пропустить, отправив '-'):")
}

func (b *Bot) stepPhone(c tele.Context) error {
	chatID := c.Chat().ID
	if c.Text() != skipToken {
		// Stored verbatim, no format validation.
		b.sessions.SetDraft(chatID, draftPhone, c.Text())
	}
	b.sessions.SetState(chatID, session.StateAwaitingEmail)
	return tghelpers.SendText(c, "Спасибо! Последний шаг - введите ваш email (можно пропустить, отправив '-'):")
}

func (b *Bot) stepEmail(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	chatID := c.Chat().ID

	if c.Text() != skipToken {
		b.sessions.SetDraft(chatID, draftEmail, c.Text())
	}
	draft := b.sessions.Draft(chatID)

	consentDate := time.Now().UTC()
	if raw, ok := draft[draftConsentDate]; ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			consentDate = t
		}
	}

	user, err := b.store.CreateUser(ctx, storage.NewUser{
		FullName:       draft[draftFullName],
		Position:       draft[draftPosition],
		Department:     draft[draftDepartment],
		Office:         draft[draftOffice],
		Phone:          draft[draftPhone],
		Email:          draft[draftEmail],
		ChatID:         chatKey(c),
		PrivacyConsent: draft[draftConsent] == "true",
		ConsentDate:    consentDate,
	})
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			b.sessions.Reset(chatID)
			return tghelpers.SendText(c,
				"Пользователь с таким Telegram уже зарегистрирован или email уже используется.\n"+
					"Если вы считаете, что это ошибка — обратитесь к администратору.")
		}
		// The draft stays intact so resubmitting the email retries the commit.
		return tghelpers.SendText(c, "Не удалось завершить регистрацию. Попробуйте отправить email ещё раз.")
	}

	b.sessions.Reset(chatID)
	return tghelpers.SendText(c,
		"Регистрация успешно завершена, "+user.FullName+"!✅\n\n"+
			"⚠️ Ваш аккаунт находится на проверке у администратора. "+
			"До подтверждения профиля некоторые функции будут ограничены.\n\n"+
			"Вы сможете просматривать свой профиль по команде /profile, "+
			"но создание заявок станет доступно только после подтверждения.\n\n"+
			"Если вам срочно требуется доступ, обратитесь к администратору системы.")
}

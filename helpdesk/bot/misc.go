package bot

import (
	"errors"
	"fmt"
	"os"
	"strings"

	tgformat "helpdeskbot/core/telegram/format"
	tghelpers "helpdeskbot/core/telegram/helpers"
	"helpdeskbot/helpdesk/models"
	"helpdeskbot/helpdesk/storage"

	tele "gopkg.in/telebot.v4"
)

const helpText = "Я — бот системы обработки заявок. Вот список доступных команд:\n" +
	"/start - Начать работу с ботом или зарегистрироваться\n" +
	"/new_ticket - Создать новую заявку\n" +
	"/tickets - Выбрать активную заявку и просмотреть сообщения по ней\n" +
	"/profile - Показать информацию о моем профиле\n" +
	"/pdn_policy - Политика обработки персональных данных\n" +
	"/help - Показать эту справку\n\n" +
	"Внимание: если в чате не будет активности в течение 6 часов, " +
	"активная заявка будет очищена, и вам потребуется выбрать её снова через команду /tickets."

// fallbackPolicyText is used when the policy file is missing on disk.
const fallbackPolicyText = "<b>Политика обработки персональных данных</b>\n\n" +
	"В соответствии с требованиями Федерального закона от 27.07.2006 г. № 152-ФЗ «О персональных данных»:\n\n" +
	"1. Ваши персональные данные (ФИО, должность, отделение, номер кабинета, телефон, email) " +
	"хранятся в защищённой базе данных системы поддержки.\n\n" +
	"2. Данные используются исключительно для идентификации пользователей и обработки заявок.\n\n" +
	"3. Мы не передаём ваши данные третьим лицам без вашего согласия, за исключением случаев, " +
	"предусмотренных законодательством РФ.\n\n" +
	"4. Вы имеете право на доступ к своим персональным данным, их обновление, удаление или ограничение обработки " +
	"по запросу к администратору системы.\n\n" +
	"5. Система хранит дату и время вашего согласия с политикой обработки персональных данных.\n\n" +
	"6. По всем вопросам относительно обработки ваших персональных данных вы можете обратиться " +
	"к администратору системы поддержки."

func (b *Bot) handleHelp(c tele.Context) error {
	b.touch(c)
	return tghelpers.SendText(c, helpText)
}

func (b *Bot) handlePdnPolicy(c tele.Context) error {
	b.touch(c)

	data, err := os.ReadFile(b.policyPath)
	if err != nil {
		return tghelpers.SendHTML(c, fallbackPolicyText)
	}

	// The first line of the policy file becomes the bold heading.
	text := string(data)
	if head, rest, found := strings.Cut(text, "\n"); found {
		text = "<b>" + tgformat.EscapeHTML(head) + "</b>\n\n" + tgformat.EscapeHTML(rest)
	} else {
		text = tgformat.EscapeHTML(text)
	}
	return tghelpers.SendHTML(c, text)
}

func roleLabel(role string) string {
	switch role {
	case models.RoleAdmin:
		return "Администратор"
	case models.RoleCurator:
		return "Куратор"
	default:
		return "Пользователь"
	}
}

func (b *Bot) handleProfile(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	b.touch(c)

	user, err := tghelpers.CurrentUser[*models.User](ctx, b.store, c.Chat().ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return tghelpers.SendText(c, "Вы не зарегистрированы в системе. Используйте /start для регистрации.")
		}
		return err
	}

	consentDate := "Не указана"
	if user.ConsentDate.Valid {
		consentDate = user.ConsentDate.Time.Format("02.01.2006 15:04")
	}
	phone := "Не указан"
	if user.Phone.Valid && user.Phone.String != "" {
		phone = user.Phone.String
	}
	email := "Не указан"
	if user.Email.Valid && user.Email.String != "" {
		email = user.Email.String
	}
	confirmation := "❌ Ожидает подтверждения"
	if user.IsConfirmed {
		confirmation = "✅ Подтвержден"
	}
	activity := "❌ Заблокирован"
	if user.IsActive {
		activity = "✅ Активен"
	}
	consent := "Не получено"
	if user.PrivacyConsent {
		consent = "Получено"
	}

	text := fmt.Sprintf(
		"📋 <b>Ваш профиль</b>\n\n"+
			"👤 <b>ФИО:</b> %s\n"+
			"🏢 <b>Должность:</b> %s\n"+
			"🏥 <b>Отделение:</b> %s\n"+
			"🚪 <b>Кабинет:</b> %s\n"+
			"📱 <b>Телефон:</b> %s\n"+
			"📧 <b>Email:</b> %s\n\n"+
			"🔐 <b>Статус профиля:</b> %s, %s\n"+
			"📅 <b>Дата регистрации:</b> %s\n"+
			"✍️ <b>Согласие на обработку ПДн:</b> %s\n"+
			"📆 <b>Дата согласия:</b> %s\n"+
			"👑 <b>Роль:</b> %s\n",
		tgformat.EscapeHTML(user.FullName),
		tgformat.EscapeHTML(user.Position),
		tgformat.EscapeHTML(user.Department),
		tgformat.EscapeHTML(user.Office),
		tgformat.EscapeHTML(phone),
		tgformat.EscapeHTML(email),
		activity, confirmation,
		user.CreatedAt.Format("02.01.2006 15:04"),
		consent, consentDate,
		roleLabel(user.Role))

	if !user.IsConfirmed {
		text += "\n⚠️ <b>Внимание:</b> Ваш аккаунт ожидает подтверждения администратором. " +
			"До подтверждения вы не сможете создавать заявки и писать сообщения."
	} else if !user.IsActive {
		text += "\n⛔ <b>Внимание:</b> Ваш аккаунт заблокирован администратором. " +
			"Для выяснения причин обратитесь к администратору системы."
	}

	return tghelpers.SendHTML(c, text)
}

// handlePendingUsers lists accounts awaiting confirmation. Admin only.
func (b *Bot) handlePendingUsers(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)

	users, err := b.store.PendingUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return tghelpers.SendText(c, "Нет аккаунтов, ожидающих подтверждения.")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>Ожидают подтверждения (%d):</b>\n\n", len(users))
	for _, u := range users {
		fmt.Fprintf(&sb, "• %s — %s, %s (с %s)\n",
			tgformat.EscapeHTML(u.FullName),
			tgformat.EscapeHTML(u.Position),
			tgformat.EscapeHTML(u.Department),
			u.CreatedAt.Format("02.01.2006"))
	}
	return tghelpers.SendHTML(c, sb.String())
}

// UnknownText handles text that matches no command while no flow is active.
func (b *Bot) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		b.touch(c)
		return tghelpers.SendText(c, "Я не понял эту команду. Используйте /help для списка доступных команд.")
	}
}

// UnknownDocument nudges users towards the ticket wizard.
func (b *Bot) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		b.touch(c)
		return tghelpers.SendText(c,
			"Спасибо за документ! Если вы хотите создать заявку с этим файлом, "+
				"используйте команду /new_ticket, а затем прикрепите файл на этапе вложений.")
	}
}

// UnknownPhoto nudges users towards the ticket wizard.
func (b *Bot) UnknownPhoto() tele.HandlerFunc {
	return func(c tele.Context) error {
		b.touch(c)
		return tghelpers.SendText(c,
			"Отличное фото! Если вы хотите создать заявку с этим изображением, "+
				"используйте команду /new_ticket, а затем прикрепите фото на этапе вложений.")
	}
}

// UnknownCallback answers stale or unrecognized inline buttons.
func (b *Bot) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: "Эта кнопка больше не активна."})
	}
}

package bot

import (
	tg "helpdeskbot/core/telegram"
	"helpdeskbot/core/telegram/commands"
	"helpdeskbot/core/telegram/router"
	"helpdeskbot/core/telegram/ui"
	"helpdeskbot/helpdesk/session"
)

var _ ui.FallbackProvider = (*Bot)(nil)

// BuildRegistry declares every command and inline callback the bot serves.
func (b *Bot) BuildRegistry() *tg.Registry {
	reg := tg.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{
		Handler:     b.handleStart,
		Description: "Начать работу с ботом или зарегистрироваться",
	})
	reg.RegisterCommand("/new_ticket", commands.Command{
		Handler:     b.handleNewTicket,
		Description: "Создать новую заявку",
	})
	reg.RegisterCommand("/tickets", commands.Command{
		Handler:     b.handleTickets,
		Description: "Выбрать активную заявку или просмотреть сообщения по ней",
	})
	reg.RegisterCommand("/profile", commands.Command{
		Handler:     b.handleProfile,
		Description: "Показать информацию о моем профиле",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     b.handleHelp,
		Description: "Показать справку",
	})
	reg.RegisterCommand("/pdn_policy", commands.Command{
		Handler:     b.handlePdnPolicy,
		Description: "Политика обработки персональных данных",
	})
	reg.RegisterCommand("/my_tickets", commands.Command{
		Handler:     b.handleMyTickets,
		Description: "Устаревший псевдоним /tickets",
		Hidden:      true,
	})
	reg.RegisterCommand("/pending_users", commands.Command{
		Handler:     b.handlePendingUsers,
		Description: "Аккаунты, ожидающие подтверждения",
		AdminOnly:   true,
		Hidden:      true,
	})

	_ = reg.RegisterCallback("gdpr_agree", b.cbConsentAgree)
	_ = reg.RegisterCallback("gdpr_decline", b.cbConsentDecline)
	_ = reg.RegisterCallback("category", b.cbCategory)
	_ = reg.RegisterCallback("select_ticket", b.cbSelectTicket)
	_ = reg.RegisterCallback("page", b.cbPage)
	_ = reg.RegisterCallback("page_info", b.cbPageInfo)
	_ = reg.RegisterCallback("attachments_done", b.cbAttachmentsDone)

	reg.SetCallbackNotFound(b.UnknownCallback())

	return reg
}

// RegisterFlows binds every wizard step to its session state. Must run once
// before the first update is dispatched.
func (b *Bot) RegisterFlows() {
	session.RegisterHandler(session.StateAwaitingConsent, b.stepConsent)
	session.RegisterHandler(session.StateAwaitingFullName, b.stepFullName)
	session.RegisterHandler(session.StateAwaitingPosition, b.stepPosition)
	session.RegisterHandler(session.StateAwaitingDepartment, b.stepDepartment)
	session.RegisterHandler(session.StateAwaitingOffice, b.stepOffice)
	session.RegisterHandler(session.StateAwaitingPhone, b.stepPhone)
	session.RegisterHandler(session.StateAwaitingEmail, b.stepEmail)
	session.RegisterHandler(session.StateAwaitingTicketCategory, b.stepCategoryText)
	session.RegisterHandler(session.StateAwaitingTicketTitle, b.stepTitle)
	session.RegisterHandler(session.StateAwaitingTicketDescription, b.stepDescription)
	session.RegisterHandler(session.StateCollectingAttachments, b.stepAttachments)
	session.RegisterHandler(session.StateBrowsingTickets, b.stepBrowsing)
	session.RegisterHandler(session.StateChattingOnTicket, b.stepChatting)
}

// Routes assembles the full route table: commands, the callback router, and
// the state-aware text/media routes.
func (b *Bot) Routes(reg *tg.Registry) []tg.Route {
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{AdminID: b.adminID})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{NotFound: b.UnknownCallback()}))
	routes = append(routes, router.TextRoutes(b.sessions, reg, router.TextOptions{
		UnknownText:     b.UnknownText(),
		UnknownDocument: b.UnknownDocument(),
		UnknownPhoto:    b.UnknownPhoto(),
	})...)
	return routes
}

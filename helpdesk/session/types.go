// Package session keeps per-chat conversational state for the helpdesk bot:
// the registration and ticket wizards, the active-ticket binding for live
// forwarding, and the pagination cursor for ticket browsing. Sessions live
// in process memory only; a restart loses them and users re-issue commands.
package session

import (
	"time"

	tele "gopkg.in/telebot.v4"
)

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"

	// Registration wizard.
	StateAwaitingConsent    State = "reg.consent"
	StateAwaitingFullName   State = "reg.full_name"
	StateAwaitingPosition   State = "reg.position"
	StateAwaitingDepartment State = "reg.department"
	StateAwaitingOffice     State = "reg.office"
	StateAwaitingPhone      State = "reg.phone"
	StateAwaitingEmail      State = "reg.email"

	// Ticket creation wizard.
	StateAwaitingTicketCategory    State = "ticket.category"
	StateAwaitingTicketTitle       State = "ticket.title"
	StateAwaitingTicketDescription State = "ticket.description"
	StateCollectingAttachments     State = "ticket.attachments"

	// Browsing and live chatting.
	StateBrowsingTickets  State = "tickets.browsing"
	StateChattingOnTicket State = "tickets.chatting"
)

// MaxAttachments caps how many files a single ticket draft may carry.
const MaxAttachments = 5

// MaxAttachmentSize is the per-file byte cap for ticket attachments.
const MaxAttachmentSize = 5 * 1024 * 1024

// PendingAttachment describes a file accepted into the ticket draft but not
// yet committed to the store.
type PendingAttachment struct {
	FileID    string
	Kind      string
	FileName  string
	LocalPath string
	Size      int64
	IsImage   bool
}

// Session stores conversation state and draft data for a single chat.
type Session struct {
	ChatID         int64
	State          State
	Draft          map[string]string
	Attachments    []PendingAttachment
	ActiveTicketID int64
	LastActivityAt time.Time
	Page           int
	TicketIDs      []int64
}

// Manager orchestrates chat sessions and FSM state transitions.
type Manager interface {
	Get(chatID int64) *Session
	SetState(chatID int64, st State)
	GetState(chatID int64) State
	SetDraft(chatID int64, key, value string)
	Draft(chatID int64) map[string]string
	AddAttachment(chatID int64, att PendingAttachment) (int, bool)
	Attachments(chatID int64) []PendingAttachment
	SetActiveTicket(chatID int64, ticketID int64)
	ActiveTicket(chatID int64) int64
	SetPagination(chatID int64, ids []int64, page int)
	Pagination(chatID int64) ([]int64, int)
	Touch(chatID int64)
	Reset(chatID int64)

	// Range iterates over a snapshot of all sessions; the callback must not
	// mutate the store through anything but the Manager methods.
	Range(fn func(s Session))

	InProgress(chatID int64) bool
	ManagerHandler(c tele.Context) error
}

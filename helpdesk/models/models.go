// Package models defines the persistent helpdesk entities shared by the
// storage layer, the bot handlers, and the web-side notification trigger.
package models

import (
	"database/sql"
	"time"
)

// User roles.
const (
	RoleAgent   = "agent"
	RoleCurator = "curator"
	RoleAdmin   = "admin"
)

// Ticket statuses.
const (
	StatusNew        = "new"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
	StatusClosed     = "closed"
	StatusIrrelevant = "irrelevant"
)

// Ticket priorities.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// User is a registered helpdesk account bound to a Telegram chat.
type User struct {
	ID             int64          `db:"id"`
	FullName       string         `db:"full_name"`
	Position       string         `db:"position"`
	Department     string         `db:"department"`
	Office         string         `db:"office"`
	Phone          sql.NullString `db:"phone"`
	Email          sql.NullString `db:"email"`
	ChatID         string         `db:"chat_id"`
	Role           string         `db:"role"`
	PrivacyConsent bool           `db:"privacy_consent"`
	ConsentDate    sql.NullTime   `db:"consent_date"`
	IsConfirmed    bool           `db:"is_confirmed"`
	IsActive       bool           `db:"is_active"`
	CreatedAt      time.Time      `db:"created_at"`
}

// TicketCategory is a staff-managed classification for new tickets.
type TicketCategory struct {
	ID          int64          `db:"id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	IsActive    bool           `db:"is_active"`
	CreatedAt   time.Time      `db:"created_at"`
}

// Ticket is a support request created from the bot or the dashboard.
type Ticket struct {
	ID            int64          `db:"id"`
	Title         string         `db:"title"`
	Description   string         `db:"description"`
	Status        string         `db:"status"`
	Priority      string         `db:"priority"`
	CreatorChatID string         `db:"creator_chat_id"`
	CategoryID    sql.NullInt64  `db:"category_id"`
	Resolution    sql.NullString `db:"resolution"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

// Message is a single entry in a ticket's conversation thread.
type Message struct {
	ID         int64     `db:"id"`
	TicketID   int64     `db:"ticket_id"`
	SenderID   string    `db:"sender_id"`
	SenderName string    `db:"sender_name"`
	Content    string    `db:"content"`
	IsFromUser bool      `db:"is_from_user"`
	IsInternal bool      `db:"is_internal"`
	CreatedAt  time.Time `db:"created_at"`
}

// Attachment is a stored file linked to a ticket and, optionally, to a
// specific message within it.
type Attachment struct {
	ID         int64          `db:"id"`
	TicketID   int64          `db:"ticket_id"`
	MessageID  sql.NullInt64  `db:"message_id"`
	FileName   string         `db:"file_name"`
	FilePath   string         `db:"file_path"`
	FileType   sql.NullString `db:"file_type"`
	IsImage    bool           `db:"is_image"`
	UploadDate time.Time      `db:"upload_date"`
}

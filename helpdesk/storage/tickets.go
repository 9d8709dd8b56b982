package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"helpdeskbot/core/logger"
	"helpdeskbot/helpdesk/models"
	"log/slog"
)

// NewTicket carries the committed ticket wizard draft.
type NewTicket struct {
	Title         string
	Description   string
	CategoryID    int64
	CreatorChatID string
}

// NewAttachment describes one file stored alongside a new ticket.
type NewAttachment struct {
	FileName string
	FilePath string
	FileType string
	IsImage  bool
}

// CreateTicket inserts the ticket and its attachments atomically. New tickets
// always start with status "new" and priority "normal".
func (s *Store) CreateTicket(ctx context.Context, nt NewTicket, attachments []NewAttachment) (*models.Ticket, error) {
	start := time.Now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create ticket: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var t models.Ticket
	err = tx.GetContext(ctx, &t,
		`INSERT INTO tickets (title, description, status, priority, creator_chat_id, category_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, 0), NOW(), NOW())
		 RETURNING id, title, description, status, priority, creator_chat_id, category_id,
		           resolution, created_at, updated_at`,
		nt.Title, nt.Description, models.StatusNew, models.PriorityNormal, nt.CreatorChatID, nt.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("create ticket: insert: %w", err)
	}

	for _, att := range attachments {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO attachments (ticket_id, file_name, file_path, file_type, is_image, upload_date)
			 VALUES ($1, $2, $3, NULLIF($4, ''), $5, NOW())`,
			t.ID, att.FileName, att.FilePath, att.FileType, att.IsImage)
		if err != nil {
			return nil, fmt.Errorf("create ticket: attachment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create ticket: commit: %w", err)
	}

	logger.SVCTickets.Info("ticket created",
		slog.String("event", "tickets.create"),
		slog.String("status", "ok"),
		slog.Int64("ticket_id", t.ID),
		slog.Int("attachments", len(attachments)),
		slog.Duration("duration", logger.Took(start)),
	)
	return &t, nil
}

// TicketsByCreator lists all tickets owned by a chat, newest first.
func (s *Store) TicketsByCreator(ctx context.Context, chatID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := s.db.SelectContext(ctx, &tickets,
		`SELECT id, title, description, status, priority, creator_chat_id, category_id,
		        resolution, created_at, updated_at
		   FROM tickets
		  WHERE creator_chat_id = $1
		  ORDER BY created_at DESC`, chatID)
	if err != nil {
		return nil, fmt.Errorf("tickets by creator: %w", err)
	}
	return tickets, nil
}

// TicketForCreator loads a ticket only when the chat owns it.
func (s *Store) TicketForCreator(ctx context.Context, ticketID int64, chatID string) (*models.Ticket, error) {
	var t models.Ticket
	err := s.db.GetContext(ctx, &t,
		`SELECT id, title, description, status, priority, creator_chat_id, category_id,
		        resolution, created_at, updated_at
		   FROM tickets
		  WHERE id = $1 AND creator_chat_id = $2`, ticketID, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ticket for creator: %w", err)
	}
	return &t, nil
}

// TicketByID loads a ticket regardless of ownership; used by the web-side
// notification path where the dashboard already authorized the access.
func (s *Store) TicketByID(ctx context.Context, ticketID int64) (*models.Ticket, error) {
	var t models.Ticket
	err := s.db.GetContext(ctx, &t,
		`SELECT id, title, description, status, priority, creator_chat_id, category_id,
		        resolution, created_at, updated_at
		   FROM tickets WHERE id = $1`, ticketID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ticket by id: %w", err)
	}
	return &t, nil
}

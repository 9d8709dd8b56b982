package storage

import (
	"context"
	"fmt"
	"time"

	"helpdeskbot/helpdesk/models"

	"github.com/jmoiron/sqlx"
)

// replayLimit caps how much ticket history is replayed into a chat.
const replayLimit = 30

// NewMessage carries a message arriving from the web dashboard.
type NewMessage struct {
	TicketID   int64
	SenderID   string
	SenderName string
	Content    string
	CreatedAt  time.Time
}

// CreateWebMessage persists a staff reply coming from the dashboard. Staff
// messages are recorded as internal, not-from-user entries.
func (s *Store) CreateWebMessage(ctx context.Context, nm NewMessage) (*models.Message, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create message: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var msg models.Message
	err = tx.GetContext(ctx, &msg,
		`INSERT INTO messages (ticket_id, sender_id, sender_name, content, is_from_user, is_internal, created_at)
		 VALUES ($1, $2, $3, $4, FALSE, TRUE, $5)
		 RETURNING id, ticket_id, sender_id, sender_name, content, is_from_user, is_internal, created_at`,
		nm.TicketID, nm.SenderID, nm.SenderName, nm.Content, nm.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create message: insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create message: commit: %w", err)
	}
	return &msg, nil
}

// CreateUserMessage persists a message the user typed into a bound ticket
// chat. User messages are visible to staff on the dashboard.
func (s *Store) CreateUserMessage(ctx context.Context, nm NewMessage) (*models.Message, error) {
	var msg models.Message
	err := s.db.GetContext(ctx, &msg,
		`INSERT INTO messages (ticket_id, sender_id, sender_name, content, is_from_user, is_internal, created_at)
		 VALUES ($1, $2, $3, $4, TRUE, FALSE, $5)
		 RETURNING id, ticket_id, sender_id, sender_name, content, is_from_user, is_internal, created_at`,
		nm.TicketID, nm.SenderID, nm.SenderName, nm.Content, nm.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create user message: %w", err)
	}
	return &msg, nil
}

// TicketThread loads the replay view of a ticket: the most recent messages in
// chronological order, the attachments belonging to each of them, and the
// ticket-level attachments not linked to any message.
func (s *Store) TicketThread(ctx context.Context, ticketID int64) ([]models.Message, map[int64][]models.Attachment, []models.Attachment, error) {
	var messages []models.Message
	err := s.db.SelectContext(ctx, &messages,
		`SELECT id, ticket_id, sender_id, sender_name, content, is_from_user, is_internal, created_at
		   FROM messages
		  WHERE ticket_id = $1
		  ORDER BY created_at
		  LIMIT $2`, ticketID, replayLimit)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("ticket thread: messages: %w", err)
	}

	byMessage := make(map[int64][]models.Attachment)
	if len(messages) > 0 {
		ids := make([]int64, 0, len(messages))
		for _, msg := range messages {
			ids = append(ids, msg.ID)
		}
		query, args, err := sqlx.In(
			`SELECT id, ticket_id, message_id, file_name, file_path, file_type, is_image, upload_date
			   FROM attachments WHERE message_id IN (?)`, ids)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("ticket thread: attachment query: %w", err)
		}
		var attachments []models.Attachment
		if err := s.db.SelectContext(ctx, &attachments, s.db.Rebind(query), args...); err != nil {
			return nil, nil, nil, fmt.Errorf("ticket thread: attachments: %w", err)
		}
		for _, att := range attachments {
			byMessage[att.MessageID.Int64] = append(byMessage[att.MessageID.Int64], att)
		}
	}

	var ticketLevel []models.Attachment
	err = s.db.SelectContext(ctx, &ticketLevel,
		`SELECT id, ticket_id, message_id, file_name, file_path, file_type, is_image, upload_date
		   FROM attachments
		  WHERE ticket_id = $1 AND message_id IS NULL
		  ORDER BY upload_date`, ticketID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("ticket thread: ticket attachments: %w", err)
	}

	return messages, byMessage, ticketLevel, nil
}

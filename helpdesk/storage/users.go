package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"helpdeskbot/core/logger"
	"helpdeskbot/helpdesk/models"
	"log/slog"
)

// ErrUserExists is returned when a registration collides with an existing
// chat id or email.
var ErrUserExists = errors.New("storage: user already exists")

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("storage: not found")

// NewUser carries the committed registration draft.
type NewUser struct {
	FullName       string
	Position       string
	Department     string
	Office         string
	Phone          string // empty means NULL
	Email          string // empty means NULL
	ChatID         string
	PrivacyConsent bool
	ConsentDate    time.Time
}

// UserByChatID loads the account bound to a chat, or ErrNotFound.
func (s *Store) UserByChatID(ctx context.Context, chatID string) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u,
		`SELECT id, full_name, position, department, office, phone, email, chat_id,
		        role, privacy_consent, consent_date, is_confirmed, is_active, created_at
		   FROM users WHERE chat_id = $1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user by chat id: %w", err)
	}
	return &u, nil
}

// GetUserByTelegramID resolves a numeric Telegram chat id to the account.
func (s *Store) GetUserByTelegramID(ctx context.Context, tgID int64) (*models.User, error) {
	return s.UserByChatID(ctx, strconv.FormatInt(tgID, 10))
}

// CreateUser commits a registration in a single transaction. The uniqueness
// check and the insert share the transaction so a concurrent duplicate
// registration fails cleanly on the chat_id constraint.
func (s *Store) CreateUser(ctx context.Context, nu NewUser) (*models.User, error) {
	start := time.Now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create user: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	err = tx.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM users WHERE chat_id = $1 OR (email IS NOT NULL AND email = $2))`,
		nu.ChatID, nu.Email)
	if err != nil {
		return nil, fmt.Errorf("create user: existence check: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	var u models.User
	err = tx.GetContext(ctx, &u,
		`INSERT INTO users (full_name, position, department, office, phone, email, chat_id,
		                    role, privacy_consent, consent_date, is_confirmed, is_active, created_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9, $10, FALSE, TRUE, NOW())
		 RETURNING id, full_name, position, department, office, phone, email, chat_id,
		           role, privacy_consent, consent_date, is_confirmed, is_active, created_at`,
		nu.FullName, nu.Position, nu.Department, nu.Office, nu.Phone, nu.Email,
		nu.ChatID, models.RoleAgent, nu.PrivacyConsent, nu.ConsentDate)
	if err != nil {
		return nil, fmt.Errorf("create user: insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create user: commit: %w", err)
	}

	logger.SVCUsers.Info("user registered",
		slog.String("event", "users.create"),
		slog.String("status", "ok"),
		slog.Int64("user_id", u.ID),
		slog.Duration("duration", logger.Took(start)),
	)
	return &u, nil
}

// PendingUsers lists unconfirmed active accounts, oldest first.
func (s *Store) PendingUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.SelectContext(ctx, &users,
		`SELECT id, full_name, position, department, office, phone, email, chat_id,
		        role, privacy_consent, consent_date, is_confirmed, is_active, created_at
		   FROM users
		  WHERE is_confirmed = FALSE AND is_active = TRUE
		  ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("pending users: %w", err)
	}
	return users, nil
}

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"helpdeskbot/core/logger"
	"helpdeskbot/helpdesk/models"
	"log/slog"

	"github.com/allegro/bigcache/v3"
)

const activeCategoriesKey = "categories.active"

// ActiveCategories returns all active ticket categories ordered by name.
// Results pass through an in-memory TTL cache since the category set changes
// rarely and the list is re-read on every /new_ticket.
func (s *Store) ActiveCategories(ctx context.Context) ([]models.TicketCategory, error) {
	if s.categoryCache != nil {
		if raw, err := s.categoryCache.Get(activeCategoriesKey); err == nil {
			var cached []models.TicketCategory
			if err := json.Unmarshal(raw, &cached); err == nil {
				logger.SVCTickets.Debug("categories served from cache",
					slog.String("event", "categories.list"),
					slog.String("cache", "hit"),
					slog.Int("count", len(cached)),
				)
				return cached, nil
			}
		}
	}

	var categories []models.TicketCategory
	err := s.db.SelectContext(ctx, &categories,
		`SELECT id, name, description, is_active, created_at
		   FROM ticket_categories
		  WHERE is_active = TRUE
		  ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("active categories: %w", err)
	}

	if s.categoryCache != nil {
		if raw, err := json.Marshal(categories); err == nil {
			_ = s.categoryCache.Set(activeCategoriesKey, raw)
		}
	}
	return categories, nil
}

// CategoryByID loads a single category, or ErrNotFound.
func (s *Store) CategoryByID(ctx context.Context, id int64) (*models.TicketCategory, error) {
	var cat models.TicketCategory
	err := s.db.GetContext(ctx, &cat,
		`SELECT id, name, description, is_active, created_at
		   FROM ticket_categories WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("category by id: %w", err)
	}
	return &cat, nil
}

// InvalidateCategoryCache drops the cached active-category list. Called after
// seeding so the first /new_ticket sees fresh data.
func (s *Store) InvalidateCategoryCache() {
	if s.categoryCache == nil {
		return
	}
	if err := s.categoryCache.Delete(activeCategoriesKey); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		logger.SVCTickets.Warn("category cache invalidation failed",
			slog.String("event", "categories.cache"),
			slog.String("err", err.Error()),
		)
	}
}

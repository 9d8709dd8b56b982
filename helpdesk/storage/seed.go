package storage

import (
	"context"
	"fmt"

	"helpdeskbot/core/bootstrap"
	"helpdeskbot/core/logger"
	"log/slog"
)

var defaultCategories = []string{
	"Оборудование",
	"Программное обеспечение",
	"Сеть и доступ",
	"Другое",
}

// CategorySeeder returns a bootstrap seeder that loads the default ticket
// categories on first start. An already-populated table is left untouched.
func CategorySeeder(store *Store) bootstrap.Seeder {
	return bootstrap.SeederFunc(func(ctx context.Context, _ bootstrap.Storage) error {
		var count int
		if err := store.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM ticket_categories`); err != nil {
			return fmt.Errorf("seed categories: count: %w", err)
		}
		if count > 0 {
			logger.SEED.Debug("categories already seeded",
				slog.String("event", "seed.categories"),
				slog.String("status", "skip"),
				slog.Int("count", count),
			)
			return nil
		}

		tx, err := store.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("seed categories: begin: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		for _, name := range defaultCategories {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO ticket_categories (name, is_active, created_at) VALUES ($1, TRUE, NOW())
				 ON CONFLICT (name) DO NOTHING`, name); err != nil {
				return fmt.Errorf("seed categories: insert %q: %w", name, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("seed categories: commit: %w", err)
		}
		store.InvalidateCategoryCache()

		logger.SEED.Info("categories seeded",
			slog.String("event", "seed.categories"),
			slog.String("status", "ok"),
			slog.Int("count", len(defaultCategories)),
		)
		return nil
	})
}

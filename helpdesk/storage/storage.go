// Package storage implements the persistent boundary of the bot: users,
// tickets, messages, attachments and categories in Postgres via sqlx. Each
// mutating operation runs in its own committed transaction; nothing here
// reuses a transaction across requests.
package storage

import (
	"context"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/jmoiron/sqlx"
)

const categoryCacheTTL = 2 * time.Hour

// Store bundles the repositories over a single connection pool.
type Store struct {
	db            *sqlx.DB
	categoryCache *bigcache.BigCache
}

// New wires a Store over the given pool. The category read-cache is best
// effort: a cache construction failure disables caching but not the Store.
func New(db *sqlx.DB) (*Store, error) {
	cache, err := bigcache.New(context.Background(), bigcache.DefaultConfig(categoryCacheTTL))
	if err != nil {
		return nil, err
	}
	return &Store{db: db, categoryCache: cache}, nil
}

// DB exposes the underlying pool for health checks.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

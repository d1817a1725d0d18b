// Package cache is a small key/value store with expiry kept in PostgreSQL,
// so every API replica sees the same entries without extra infrastructure.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrCacheMiss is returned for absent and expired keys alike.
var ErrCacheMiss = errors.New("cache miss")

// DB is compatible with pgxpool.Pool and pgxmock.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

type PGCache struct {
	db  DB
	now func() time.Time
}

func NewPGCache(db DB) *PGCache {
	return &PGCache{db: db, now: time.Now}
}

func (c *PGCache) Get(ctx context.Context, key string) ([]byte, error) {
	query := `
		SELECT value
		FROM cache_entries
		WHERE key = $1 AND expires_at > $2
	`

	var value []byte
	err := c.db.QueryRow(ctx, query, key, c.now()).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}
	return value, nil
}

func (c *PGCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	query := `
		INSERT INTO cache_entries (key, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    expires_at = EXCLUDED.expires_at,
		    created_at = NOW()
	`

	if _, err := c.db.Exec(ctx, query, key, value, c.now().Add(ttl)); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (c *PGCache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.Exec(ctx, `DELETE FROM cache_entries WHERE key = $1`, key); err != nil {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	return nil
}

// CleanupExpired removes expired rows and returns how many were deleted.
func (c *PGCache) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := c.db.Exec(ctx, `DELETE FROM cache_entries WHERE expires_at <= $1`, c.now())
	if err != nil {
		return 0, fmt.Errorf("cache cleanup: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RunJanitor calls CleanupExpired every interval until ctx is cancelled.
func (c *PGCache) RunJanitor(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := c.CleanupExpired(ctx)
			if err != nil {
				logger.Warn("cache cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("cache cleanup", "removed", n)
			}
		}
	}
}

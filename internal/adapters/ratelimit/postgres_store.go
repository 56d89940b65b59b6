package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mikey/contact-guard/internal/core"
	"go.uber.org/zap"
)

// PostgresStore is a PostgreSQL implementation of core.RateLimitStore,
// for deployments running several instances against one quota
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore connects to PostgreSQL and creates the table if needed
func NewPostgresStore(ctx context.Context, url string, logger *zap.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	for _, stmt := range []string{`
		CREATE TABLE IF NOT EXISTS rate_limits (
			client_key TEXT PRIMARY KEY,
			attempts INTEGER NOT NULL DEFAULT 0,
			first_attempt BIGINT NOT NULL DEFAULT 0,
			last_attempt BIGINT NOT NULL DEFAULT 0,
			blocked BOOLEAN NOT NULL DEFAULT FALSE,
			block_until BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rate_limits_first_attempt ON rate_limits (first_attempt)`,
	} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create postgres schema: %w", err)
		}
	}

	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Update applies fn to the entry for key while holding its row lock
func (s *PostgresStore) Update(ctx context.Context, key string, fn func(*core.RateLimitEntry) (*core.RateLimitEntry, error)) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO rate_limits (client_key) VALUES ($1) ON CONFLICT (client_key) DO NOTHING`,
		key,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rate limit row: %w", err)
	}

	var row entryRow
	err = tx.QueryRow(ctx,
		`SELECT attempts, first_attempt, last_attempt, blocked, block_until
		 FROM rate_limits
		 WHERE client_key = $1
		 FOR UPDATE`,
		key,
	).Scan(&row.attempts, &row.firstAttempt, &row.lastAttempt, &row.blocked, &row.blockUntil)
	if err != nil {
		return fmt.Errorf("failed to lock rate limit row: %w", err)
	}

	current := row.entry(key)
	next, err := fn(current)
	if err != nil {
		return err
	}

	switch {
	case next != nil:
		r := rowFromEntry(next)
		_, err = tx.Exec(ctx,
			`UPDATE rate_limits
			 SET attempts = $1, first_attempt = $2, last_attempt = $3, blocked = $4, block_until = $5
			 WHERE client_key = $6`,
			r.attempts, r.firstAttempt, r.lastAttempt, r.blocked, r.blockUntil, key,
		)
		if err != nil {
			return fmt.Errorf("failed to update rate limit row: %w", err)
		}
	case current == nil:
		if _, err = tx.Exec(ctx, `DELETE FROM rate_limits WHERE client_key = $1`, key); err != nil {
			return fmt.Errorf("failed to drop placeholder row: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit rate limit update: %w", err)
	}
	return nil
}

// Get returns the entry for key
func (s *PostgresStore) Get(ctx context.Context, key string) (*core.RateLimitEntry, error) {
	var row entryRow
	err := s.pool.QueryRow(ctx,
		`SELECT attempts, first_attempt, last_attempt, blocked, block_until
		 FROM rate_limits
		 WHERE client_key = $1 AND attempts > 0`,
		key,
	).Scan(&row.attempts, &row.firstAttempt, &row.lastAttempt, &row.blocked, &row.blockUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query rate limit row: %w", err)
	}
	return row.entry(key), nil
}

// Cleanup removes expired entries
func (s *PostgresStore) Cleanup(ctx context.Context, now time.Time, window time.Duration) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM rate_limits
		 WHERE (blocked AND block_until <= $1) OR (NOT blocked AND first_attempt <= $2)`,
		now.UnixMilli(), now.Add(-window).UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	s.logger.Debug("Cleaned up expired rate limit entries",
		zap.String("store", "postgres"),
		zap.Int64("removed", tag.RowsAffected()))
	return int(tag.RowsAffected()), nil
}

// Stats summarizes the stored entries
func (s *PostgresStore) Stats(ctx context.Context, now time.Time) (*core.RateLimitStats, error) {
	var (
		total, blocked int64
		oldest         *int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN blocked AND block_until > $1 THEN 1 ELSE 0 END), 0),
			MIN(first_attempt)
		 FROM rate_limits
		 WHERE attempts > 0`,
		now.UnixMilli(),
	).Scan(&total, &blocked, &oldest)
	if err != nil {
		return nil, fmt.Errorf("failed to query rate limit stats: %w", err)
	}

	stats := &core.RateLimitStats{TotalEntries: int(total), BlockedAddresses: int(blocked)}
	if oldest != nil {
		t := time.UnixMilli(*oldest)
		stats.OldestEntry = &t
	}
	return stats, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

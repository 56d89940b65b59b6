package ratelimit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/contact-guard/internal/core"
	"go.uber.org/zap"
)

// dialect holds the statements that differ between SQL backends.
// Times are stored as epoch milliseconds.
type dialect struct {
	name            string
	schema          []string
	ensureRow       string
	selectForUpdate string
}

// SQLStore is a database/sql implementation of core.RateLimitStore.
// Update inserts a placeholder row (attempts = 0) for unseen keys so there
// is always a row to lock; placeholder rows read as absent.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  *zap.Logger
}

func newSQLStore(db *sql.DB, d dialect, logger *zap.Logger) (*SQLStore, error) {
	for _, stmt := range d.schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create %s schema: %w", d.name, err)
		}
	}
	return &SQLStore{db: db, dialect: d, logger: logger}, nil
}

// Update applies fn to the entry for key inside a transaction holding the
// row lock
func (s *SQLStore) Update(ctx context.Context, key string, fn func(*core.RateLimitEntry) (*core.RateLimitEntry, error)) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, s.dialect.ensureRow, key); err != nil {
		return fmt.Errorf("failed to insert rate limit row: %w", err)
	}

	var row entryRow
	err = tx.QueryRowContext(ctx, s.dialect.selectForUpdate, key).
		Scan(&row.attempts, &row.firstAttempt, &row.lastAttempt, &row.blocked, &row.blockUntil)
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
		_, err = tx.ExecContext(ctx, `
			UPDATE rate_limits
			SET attempts = ?, first_attempt = ?, last_attempt = ?, blocked = ?, block_until = ?
			WHERE client_key = ?
		`, r.attempts, r.firstAttempt, r.lastAttempt, r.blocked, r.blockUntil, key)
		if err != nil {
			return fmt.Errorf("failed to update rate limit row: %w", err)
		}
	case current == nil:
		if _, err = tx.ExecContext(ctx, `DELETE FROM rate_limits WHERE client_key = ?`, key); err != nil {
			return fmt.Errorf("failed to drop placeholder row: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rate limit update: %w", err)
	}
	return nil
}

// Get returns the entry for key
func (s *SQLStore) Get(ctx context.Context, key string) (*core.RateLimitEntry, error) {
	var row entryRow
	err := s.db.QueryRowContext(ctx, `
		SELECT attempts, first_attempt, last_attempt, blocked, block_until
		FROM rate_limits
		WHERE client_key = ? AND attempts > 0
	`, key).Scan(&row.attempts, &row.firstAttempt, &row.lastAttempt, &row.blocked, &row.blockUntil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query rate limit row: %w", err)
	}
	return row.entry(key), nil
}

// Cleanup removes expired entries
func (s *SQLStore) Cleanup(ctx context.Context, now time.Time, window time.Duration) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM rate_limits
		WHERE (blocked AND block_until <= ?) OR (NOT blocked AND first_attempt <= ?)
	`, now.UnixMilli(), now.Add(-window).UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
		return 0, nil
	}
	s.logger.Debug("Cleaned up expired rate limit entries",
		zap.String("store", s.dialect.name),
		zap.Int64("removed", rowsAffected))
	return int(rowsAffected), nil
}

// Stats summarizes the stored entries
func (s *SQLStore) Stats(ctx context.Context, now time.Time) (*core.RateLimitStats, error) {
	var (
		total, blocked int64
		oldest         sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN blocked AND block_until > ? THEN 1 ELSE 0 END), 0),
			MIN(first_attempt)
		FROM rate_limits
		WHERE attempts > 0
	`, now.UnixMilli()).Scan(&total, &blocked, &oldest)
	if err != nil {
		return nil, fmt.Errorf("failed to query rate limit stats: %w", err)
	}

	stats := &core.RateLimitStats{TotalEntries: int(total), BlockedAddresses: int(blocked)}
	if oldest.Valid {
		t := time.UnixMilli(oldest.Int64)
		stats.OldestEntry = &t
	}
	return stats, nil
}

// Close closes the database
func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close %s database: %w", s.dialect.name, err)
	}
	return nil
}

type entryRow struct {
	attempts     int
	firstAttempt int64
	lastAttempt  int64
	blocked      bool
	blockUntil   int64
}

func (r entryRow) entry(key string) *core.RateLimitEntry {
	if r.attempts == 0 {
		return nil
	}
	e := &core.RateLimitEntry{
		Key:          key,
		Count:        r.attempts,
		FirstAttempt: time.UnixMilli(r.firstAttempt),
		LastAttempt:  time.UnixMilli(r.lastAttempt),
		Blocked:      r.blocked,
	}
	if r.blockUntil > 0 {
		e.BlockUntil = time.UnixMilli(r.blockUntil)
	}
	return e
}

func rowFromEntry(e *core.RateLimitEntry) entryRow {
	r := entryRow{
		attempts:     e.Count,
		firstAttempt: e.FirstAttempt.UnixMilli(),
		lastAttempt:  e.LastAttempt.UnixMilli(),
		blocked:      e.Blocked,
	}
	if !e.BlockUntil.IsZero() {
		r.blockUntil = e.BlockUntil.UnixMilli()
	}
	return r
}

package ratelimit

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{`
		CREATE TABLE IF NOT EXISTS rate_limits (
			client_key TEXT PRIMARY KEY,
			attempts INTEGER NOT NULL DEFAULT 0,
			first_attempt INTEGER NOT NULL DEFAULT 0,
			last_attempt INTEGER NOT NULL DEFAULT 0,
			blocked BOOLEAN NOT NULL DEFAULT 0,
			block_until INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rate_limits_first_attempt ON rate_limits(first_attempt)`,
	},
	ensureRow: `INSERT OR IGNORE INTO rate_limits (client_key) VALUES (?)`,
	// BEGIN IMMEDIATE already holds the write lock
	selectForUpdate: `
		SELECT attempts, first_attempt, last_attempt, blocked, block_until
		FROM rate_limits
		WHERE client_key = ?`,
}

// NewSQLiteStore opens a SQLite-backed store at dbPath. Transactions start
// with BEGIN IMMEDIATE so read-modify-write cycles are serialized.
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLStore, error) {
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	return newSQLStore(db, sqliteDialect, logger)
}

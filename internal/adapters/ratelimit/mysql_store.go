package ratelimit

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{`
		CREATE TABLE IF NOT EXISTS rate_limits (
			client_key VARCHAR(255) PRIMARY KEY,
			attempts INT NOT NULL DEFAULT 0,
			first_attempt BIGINT NOT NULL DEFAULT 0,
			last_attempt BIGINT NOT NULL DEFAULT 0,
			blocked BOOLEAN NOT NULL DEFAULT FALSE,
			block_until BIGINT NOT NULL DEFAULT 0,
			INDEX idx_first_attempt (first_attempt)
		)`,
	},
	ensureRow: `INSERT IGNORE INTO rate_limits (client_key) VALUES (?)`,
	selectForUpdate: `
		SELECT attempts, first_attempt, last_attempt, blocked, block_until
		FROM rate_limits
		WHERE client_key = ?
		FOR UPDATE`,
}

// NewMySQLStore connects to MySQL and creates the table if needed
func NewMySQLStore(dsn string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	return newSQLStore(db, mysqlDialect, logger)
}

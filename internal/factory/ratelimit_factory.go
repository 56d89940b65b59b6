package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/contact-guard/internal/adapters/ratelimit"
	"github.com/mikey/contact-guard/internal/config"
	"github.com/mikey/contact-guard/internal/core"
	"go.uber.org/zap"
)

// RateLimitFactory creates rate-limit stores based on configuration
type RateLimitFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewRateLimitFactory creates a new rate-limit factory
func NewRateLimitFactory(cfg *config.Config, logger *zap.Logger) *RateLimitFactory {
	return &RateLimitFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStore creates a rate-limit store based on the configuration
func (f *RateLimitFactory) CreateStore(ctx context.Context) (core.RateLimitStore, error) {
	rl, err := f.cfg.GetRateLimit()
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit configuration: %w", err)
	}

	switch rl.Store {
	case "memory":
		return ratelimit.NewMemoryStore(f.logger), nil
	case "sqlite":
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(rl.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		store, err := ratelimit.NewSQLiteStore(rl.SQLitePath, f.logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "mysql":
		store, err := ratelimit.NewMySQLStore(rl.MySQLDSN, f.logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		store, err := ratelimit.NewPostgresStore(ctx, rl.PostgresURL, f.logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported rate limit store: %s", rl.Store)
	}
}

// CreatePolicy returns the configured quota
func (f *RateLimitFactory) CreatePolicy() (core.RateLimitPolicy, error) {
	rl, err := f.cfg.GetRateLimit()
	if err != nil {
		return core.RateLimitPolicy{}, fmt.Errorf("invalid rate limit configuration: %w", err)
	}
	return core.RateLimitPolicy{
		MaxAttempts:        rl.MaxAttempts,
		Window:             rl.Window,
		BlockDuration:      rl.BlockDuration,
		CleanupProbability: rl.CleanupProbability,
	}, nil
}

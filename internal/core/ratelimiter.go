package core

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RateLimitPolicy holds the sliding-window quota settings
type RateLimitPolicy struct {
	MaxAttempts        int
	Window             time.Duration
	BlockDuration      time.Duration
	CleanupProbability float64
}

// DefaultRateLimitPolicy allows 5 requests per hour and blocks for an hour after
var DefaultRateLimitPolicy = RateLimitPolicy{
	MaxAttempts:        5,
	Window:             time.Hour,
	BlockDuration:      time.Hour,
	CleanupProbability: 0.1,
}

// RateLimiter enforces a per-address quota over a window anchored at the
// first request. It is defence-in-depth only: store failures let the
// request through.
type RateLimiter struct {
	store  RateLimitStore
	policy RateLimitPolicy
	logger *zap.Logger

	now    func() time.Time
	chance func() float64
}

// NewRateLimiter creates a rate limiter backed by store
func NewRateLimiter(store RateLimitStore, policy RateLimitPolicy, logger *zap.Logger) *RateLimiter {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = DefaultRateLimitPolicy.MaxAttempts
	}
	if policy.Window <= 0 {
		policy.Window = DefaultRateLimitPolicy.Window
	}
	if policy.BlockDuration <= 0 {
		policy.BlockDuration = DefaultRateLimitPolicy.BlockDuration
	}
	return &RateLimiter{
		store:  store,
		policy: policy,
		logger: logger,
		now:    time.Now,
		chance: rand.Float64,
	}
}

// Check counts one request from addr and reports whether it may proceed
func (l *RateLimiter) Check(ctx context.Context, addr string) RateLimitResult {
	now := l.now()

	if l.chance() < l.policy.CleanupProbability {
		l.cleanup(ctx, now)
	}

	var result RateLimitResult
	err := l.store.Update(ctx, addr, func(entry *RateLimitEntry) (*RateLimitEntry, error) {
		var next *RateLimitEntry
		next, result = l.transition(entry, addr, now)
		return next, nil
	})
	if err != nil {
		l.logger.Error("Rate limit store failed, allowing request",
			zap.String("client", addr),
			zap.Error(err))
		return RateLimitResult{
			Allowed:   true,
			Remaining: l.policy.MaxAttempts - 1,
			ResetTime: now.Add(l.policy.Window),
		}
	}

	if !result.Allowed {
		l.logger.Info("Rate limit exceeded",
			zap.String("client", addr),
			zap.Time("reset_time", result.ResetTime))
	}
	return result
}

// transition computes the next entry state for one request at now.
// A nil entry means no write.
func (l *RateLimiter) transition(entry *RateLimitEntry, addr string, now time.Time) (*RateLimitEntry, RateLimitResult) {
	if entry == nil || (!entry.BlockedAt(now) && now.Sub(entry.FirstAttempt) >= l.policy.Window) {
		return &RateLimitEntry{
				Key:          addr,
				Count:        1,
				FirstAttempt: now,
				LastAttempt:  now,
			}, RateLimitResult{
				Allowed:   true,
				Remaining: l.policy.MaxAttempts - 1,
				ResetTime: now.Add(l.policy.Window),
			}
	}

	if entry.BlockedAt(now) {
		minutes := int(math.Ceil(entry.BlockUntil.Sub(now).Minutes()))
		return nil, RateLimitResult{
			Allowed:   false,
			Remaining: 0,
			ResetTime: entry.BlockUntil,
			Blocked:   true,
			Message:   fmt.Sprintf("Too many requests. Please try again in %d minutes.", minutes),
		}
	}

	next := *entry
	next.Count++
	next.LastAttempt = now

	if next.Count > l.policy.MaxAttempts {
		next.Blocked = true
		next.BlockUntil = now.Add(l.policy.BlockDuration)
		return &next, RateLimitResult{
			Allowed:   false,
			Remaining: 0,
			ResetTime: next.BlockUntil,
			Blocked:   true,
			Message:   fmt.Sprintf("Rate limit exceeded. You have made %d requests. Please try again later.", next.Count),
		}
	}

	return &next, RateLimitResult{
		Allowed:   true,
		Remaining: l.policy.MaxAttempts - next.Count,
		ResetTime: next.FirstAttempt.Add(l.policy.Window),
	}
}

func (l *RateLimiter) cleanup(ctx context.Context, now time.Time) {
	removed, err := l.store.Cleanup(ctx, now, l.policy.Window)
	if err != nil {
		l.logger.Warn("Failed to clean up rate limit entries", zap.Error(err))
		return
	}
	l.logger.Debug("Cleaned up rate limit entries", zap.Int("removed", removed))
}

// RecordSubmission touches the entry of addr after a successful send
func (l *RateLimiter) RecordSubmission(ctx context.Context, addr string) error {
	now := l.now()
	return l.store.Update(ctx, addr, func(entry *RateLimitEntry) (*RateLimitEntry, error) {
		if entry == nil {
			return nil, nil
		}
		next := *entry
		next.LastAttempt = now
		return &next, nil
	})
}

// Stats summarizes the rate-limit table
func (l *RateLimiter) Stats(ctx context.Context) (*RateLimitStats, error) {
	stats, err := l.store.Stats(ctx, l.now())
	if err != nil {
		return nil, fmt.Errorf("failed to read rate limit stats: %w", err)
	}
	return stats, nil
}

package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mikey/contact-guard/internal/core"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no entry exists for a key
var ErrNotFound = errors.New("rate limit entry not found")

type memorySlot struct {
	mu    sync.Mutex
	entry *core.RateLimitEntry
	dead  bool // removed from the map by Cleanup
}

// MemoryStore is an in-process implementation of core.RateLimitStore.
// Each key has its own lock, so unrelated addresses never contend.
type MemoryStore struct {
	mu     sync.RWMutex
	slots  map[string]*memorySlot
	logger *zap.Logger
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		slots:  make(map[string]*memorySlot),
		logger: logger,
	}
}

func (s *MemoryStore) slot(key string) *memorySlot {
	s.mu.RLock()
	slot, ok := s.slots[key]
	s.mu.RUnlock()
	if ok {
		return slot
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if slot, ok = s.slots[key]; !ok {
		slot = &memorySlot{}
		s.slots[key] = slot
	}
	return slot
}

// Update applies fn to the entry for key under the key's lock
func (s *MemoryStore) Update(ctx context.Context, key string, fn func(*core.RateLimitEntry) (*core.RateLimitEntry, error)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		slot := s.slot(key)
		slot.mu.Lock()
		if slot.dead {
			// lost a race with Cleanup, the next lookup creates a fresh slot
			slot.mu.Unlock()
			continue
		}

		var current *core.RateLimitEntry
		if slot.entry != nil {
			cp := *slot.entry
			current = &cp
		}
		next, err := fn(current)
		if err == nil && next != nil {
			cp := *next
			cp.Key = key
			slot.entry = &cp
		}
		slot.mu.Unlock()
		return err
	}
}

// Get returns a copy of the entry for key
func (s *MemoryStore) Get(_ context.Context, key string) (*core.RateLimitEntry, error) {
	s.mu.RLock()
	slot, ok := s.slots[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()
	if slot.entry == nil || slot.dead {
		return nil, ErrNotFound
	}
	cp := *slot.entry
	return &cp, nil
}

// Cleanup removes expired entries
func (s *MemoryStore) Cleanup(_ context.Context, now time.Time, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, slot := range s.slots {
		slot.mu.Lock()
		if slot.entry == nil || expired(slot.entry, now, window) {
			slot.dead = true
			delete(s.slots, key)
			if slot.entry != nil {
				removed++
			}
		}
		slot.mu.Unlock()
	}

	s.logger.Debug("Cleaned up expired rate limit entries", zap.Int("removed", removed))
	return removed, nil
}

// Stats summarizes the stored entries
func (s *MemoryStore) Stats(_ context.Context, now time.Time) (*core.RateLimitStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &core.RateLimitStats{}
	for _, slot := range s.slots {
		slot.mu.Lock()
		entry := slot.entry
		slot.mu.Unlock()
		if entry == nil {
			continue
		}

		stats.TotalEntries++
		if entry.BlockedAt(now) {
			stats.BlockedAddresses++
		}
		if stats.OldestEntry == nil || entry.FirstAttempt.Before(*stats.OldestEntry) {
			first := entry.FirstAttempt
			stats.OldestEntry = &first
		}
	}
	return stats, nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}

// expired reports whether an entry may be dropped: its block has run out,
// or it is unblocked and its window has passed. A currently blocked entry
// is always kept.
func expired(e *core.RateLimitEntry, now time.Time, window time.Duration) bool {
	if e.Blocked {
		return !now.Before(e.BlockUntil)
	}
	return now.Sub(e.FirstAttempt) >= window
}

package core

import (
	"context"
	"sync"
	"time"

	"github.com/mikey/contact-guard/internal/content"
)

type mapStore struct {
	mu       sync.Mutex
	entries  map[string]*RateLimitEntry
	err      error
	cleanups int
}

func newMapStore() *mapStore {
	return &mapStore{entries: make(map[string]*RateLimitEntry)}
}

func (m *mapStore) Update(_ context.Context, key string, fn func(*RateLimitEntry) (*RateLimitEntry, error)) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var current *RateLimitEntry
	if e, ok := m.entries[key]; ok {
		cp := *e
		current = &cp
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	if next != nil {
		m.entries[key] = next
	}
	return nil
}

func (m *mapStore) Cleanup(_ context.Context, now time.Time, window time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanups++

	removed := 0
	for k, e := range m.entries {
		if e.BlockedAt(now) {
			continue
		}
		if e.Blocked || now.Sub(e.FirstAttempt) >= window {
			delete(m.entries, k)
			removed++
		}
	}
	return removed, nil
}

func (m *mapStore) Stats(_ context.Context, now time.Time) (*RateLimitStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &RateLimitStats{TotalEntries: len(m.entries)}
	for _, e := range m.entries {
		if e.BlockedAt(now) {
			stats.BlockedAddresses++
		}
		if stats.OldestEntry == nil || e.FirstAttempt.Before(*stats.OldestEntry) {
			first := e.FirstAttempt
			stats.OldestEntry = &first
		}
	}
	return stats, nil
}

func (m *mapStore) Close() error { return nil }

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeMailer struct {
	mu       sync.Mutex
	sent     []*OutboundMessage
	readyErr error
	sendErr  error
}

func (m *fakeMailer) Send(_ context.Context, msg *OutboundMessage) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) Ready() error { return m.readyErr }

type fakeReviewer struct {
	verdict *ReviewVerdict
	err     error
	calls   int
}

func (r *fakeReviewer) ReviewSubmission(_ context.Context, _ *content.SanitizedData) (*ReviewVerdict, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.verdict, nil
}

package core

import (
	"context"
	"time"

	"github.com/mikey/contact-guard/internal/content"
)

// RateLimitStore persists rate-limit entries
type RateLimitStore interface {
	// Update applies fn to the entry stored under key, atomically with
	// respect to other calls for the same key. fn receives nil for an
	// unseen key. A nil return leaves the store unchanged.
	Update(ctx context.Context, key string, fn func(*RateLimitEntry) (*RateLimitEntry, error)) error

	// Cleanup deletes entries whose block has expired, and unblocked
	// entries whose window started at or before now-window
	Cleanup(ctx context.Context, now time.Time, window time.Duration) (int, error)

	// Stats summarizes the stored entries as of now
	Stats(ctx context.Context, now time.Time) (*RateLimitStats, error)

	Close() error
}

// Mailer delivers composed messages
type Mailer interface {
	// Send delivers the message
	Send(ctx context.Context, msg *OutboundMessage) error

	// Ready reports whether the mailer is configured well enough to send
	Ready() error
}

// SubmissionReviewer asks an LLM for a second opinion on a submission
type SubmissionReviewer interface {
	ReviewSubmission(ctx context.Context, data *content.SanitizedData) (*ReviewVerdict, error)
}

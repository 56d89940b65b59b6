package core

import (
	"time"

	"github.com/mikey/contact-guard/internal/content"
)

// SubmissionRequest is the contact-form payload as received from the client
type SubmissionRequest struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	Subject           string `json:"subject"`
	Message           string `json:"message"`
	Honeypot          string `json:"honeypot,omitempty"`
	FormStartTime     *int64 `json:"formStartTime,omitempty"`
	HoneypotFieldName string `json:"honeypotFieldName,omitempty"`
}

// Fields converts the request for the content checks
func (r *SubmissionRequest) Fields() content.SubmissionFields {
	f := content.SubmissionFields{
		Name:              r.Name,
		Email:             r.Email,
		Subject:           r.Subject,
		Message:           r.Message,
		Honeypot:          r.Honeypot,
		HoneypotFieldName: r.HoneypotFieldName,
	}
	if r.FormStartTime != nil {
		f.FormStartTime = *r.FormStartTime
	}
	return f
}

// HoneypotSession is handed to the client when it renders the form
type HoneypotSession struct {
	HoneypotFieldName string `json:"honeypotFieldName"`
	FormStartTime     int64  `json:"formStartTime"`
}

// RateLimitEntry is the per-address rate-limit state
type RateLimitEntry struct {
	Key          string
	Count        int
	FirstAttempt time.Time
	LastAttempt  time.Time
	Blocked      bool
	BlockUntil   time.Time // zero unless Blocked
}

// BlockedAt reports whether the entry denies requests at t
func (e *RateLimitEntry) BlockedAt(t time.Time) bool {
	return e.Blocked && t.Before(e.BlockUntil)
}

// RateLimitResult is the outcome of one rate-limit check
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetTime time.Time
	Blocked   bool
	Message   string
}

// RateLimitStats summarizes the rate-limit table
type RateLimitStats struct {
	TotalEntries     int        `json:"totalEntries"`
	BlockedAddresses int        `json:"blockedIPs"`
	OldestEntry      *time.Time `json:"oldestEntry"`
}

// OutboundMessage is a composed notification email
type OutboundMessage struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
	Date    time.Time
}

// ReviewVerdict is the outcome of an LLM review of a submission
type ReviewVerdict struct {
	IsSpam      bool
	Score       float64
	Confidence  float64
	Explanation string
	ReviewedAt  time.Time
	ModelUsed   string
}

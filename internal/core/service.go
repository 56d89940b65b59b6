package core

import (
	"context"
	"time"

	"github.com/mikey/contact-guard/internal/content"
	"go.uber.org/zap"
)

// Client-facing texts
const (
	MessageSent          = "Message sent successfully! I'll get back to you soon."
	MessageSpam          = "Your submission appears to be spam. Please try again."
	MessageUnverified    = "We could not verify your submission. Please try again."
	MessageTooManyTries  = "Too many requests. Please try again later."
	MessageMailerMissing = "Missing mail transport configuration"
	MessageNoRecipient   = "Missing recipient email"
)

// ServiceSettings holds the delivery and review settings of the service
type ServiceSettings struct {
	From string
	To   string

	// ReviewThreshold is the LLM score at or above which a submission is spam
	ReviewThreshold float64

	// ReviewTimeout bounds a single review call; zero means no extra bound
	ReviewTimeout time.Duration

	// TrustedDomains skip the LLM review
	TrustedDomains []string
}

// ContactService takes a submission through rate limiting, validation,
// optional LLM review and delivery
type ContactService struct {
	limiter  *RateLimiter
	screener *Screener
	mailer   Mailer
	settings ServiceSettings
	logger   *zap.Logger
	now      func() time.Time
}

// NewContactService creates a new contact service. reviewer may be nil.
func NewContactService(
	limiter *RateLimiter,
	validator *content.Validator,
	mailer Mailer,
	reviewer SubmissionReviewer,
	logger *zap.Logger,
	settings ServiceSettings,
) *ContactService {
	return &ContactService{
		limiter:  limiter,
		screener: NewScreener(validator, reviewer, logger, settings),
		mailer:   mailer,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// Admit counts one request from clientAddr against its quota. It returns a
// *RateLimitError when the client is over quota or blocked.
func (s *ContactService) Admit(ctx context.Context, clientAddr string) error {
	rl := s.limiter.Check(ctx, clientAddr)
	if rl.Allowed {
		return nil
	}
	msg := rl.Message
	if msg == "" {
		msg = MessageTooManyTries
	}
	return &RateLimitError{Message: msg, RetryAfter: rl.ResetTime.Sub(s.now())}
}

// Submit admits, validates and delivers a submission from clientAddr. The
// returned error is one of the typed errors in this package.
func (s *ContactService) Submit(ctx context.Context, clientAddr string, req *SubmissionRequest) error {
	if err := s.Admit(ctx, clientAddr); err != nil {
		return err
	}
	logger := s.logger.With(zap.String("client", clientAddr))

	if s.settings.To == "" {
		logger.Error("Recipient address is not configured")
		return &ConfigError{Reason: MessageNoRecipient}
	}
	if err := s.mailer.Ready(); err != nil {
		logger.Error("Mailer is not configured", zap.Error(err))
		return &ConfigError{Reason: MessageMailerMissing, Err: err}
	}

	sc := s.screener.Screen(ctx, req)
	if !sc.Accepted() {
		result := &sc.Validation
		logger.Info("Spam/security violation detected",
			zap.Strings("schema_errors", sc.SchemaErrors),
			zap.Strings("errors", result.Errors),
			zap.Strings("warnings", result.Warnings),
			zap.Strings("patterns", result.DetectedPatterns),
			zap.Bool("is_spam", result.IsSpam),
			zap.Bool("suspicious_timing", result.SuspiciousTiming),
			zap.String("review", sc.ReviewStatus))
		return sc.Err
	}
	data := sc.Validation.SanitizedData

	msg, err := ComposeMessage(data, s.settings.From, s.settings.To, s.now())
	if err != nil {
		logger.Error("Failed to compose message", zap.Error(err))
		return &DeliveryError{Err: err}
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		logger.Error("Failed to send email", zap.Error(err))
		return &DeliveryError{Err: err}
	}

	if err := s.limiter.RecordSubmission(ctx, clientAddr); err != nil {
		logger.Warn("Failed to record submission", zap.Error(err))
	}

	logger.Info("Successful submission", zap.String("reply_to", data.Email))
	return nil
}

// HoneypotSession starts a form session with a randomized decoy field name
func (s *ContactService) HoneypotSession() HoneypotSession {
	return HoneypotSession{
		HoneypotFieldName: content.GenerateHoneypotFieldName(),
		FormStartTime:     s.now().UnixMilli(),
	}
}

// RateLimitStats summarizes the rate-limit table
func (s *ContactService) RateLimitStats(ctx context.Context) (*RateLimitStats, error) {
	return s.limiter.Stats(ctx)
}

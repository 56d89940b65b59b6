package core

import (
	"context"
	"strings"
	"time"

	"github.com/mikey/contact-guard/internal/content"
	"github.com/mikey/contact-guard/internal/domainlist"
	"go.uber.org/zap"
)

// Review outcomes recorded on a Screening
const (
	ReviewDisabled = "disabled"
	ReviewTrusted  = "trusted"
	ReviewFailed   = "failed"
	ReviewDone     = "reviewed"
)

// Screening is the detailed outcome of screening one submission
type Screening struct {
	SchemaErrors []string
	Validation   content.ValidationResult

	// ReviewStatus is one of the Review* constants; empty when the
	// submission was rejected before review
	ReviewStatus string
	Verdict      *ReviewVerdict

	// Err is nil when the submission is accepted, otherwise an
	// *InvalidInputError or *SecurityError
	Err error
}

// Accepted reports whether the submission passed every check
func (s *Screening) Accepted() bool {
	return s.Err == nil
}

// Screener runs the schema check, the content validator and the optional
// LLM review. It holds no per-client state.
type Screener struct {
	validator *content.Validator
	reviewer  SubmissionReviewer
	trusted   *domainlist.List
	threshold float64
	timeout   time.Duration
	logger    *zap.Logger
}

// NewScreener creates a screener. reviewer may be nil.
func NewScreener(validator *content.Validator, reviewer SubmissionReviewer, logger *zap.Logger, settings ServiceSettings) *Screener {
	return &Screener{
		validator: validator,
		reviewer:  reviewer,
		trusted:   domainlist.New("trusted", settings.TrustedDomains, logger),
		threshold: settings.ReviewThreshold,
		timeout:   settings.ReviewTimeout,
		logger:    logger,
	}
}

// Screen checks a submission without touching rate limits or delivery
func (s *Screener) Screen(ctx context.Context, req *SubmissionRequest) *Screening {
	fields := req.Fields()
	sc := &Screening{}

	if problems := content.ValidateSchema(fields); len(problems) > 0 {
		sc.SchemaErrors = problems
		sc.Err = &InvalidInputError{Problems: problems}
		return sc
	}

	sc.Validation = s.validator.Validate(fields, fields.FormStartTime)
	if !sc.Validation.IsValid {
		sc.Err = securityError(&sc.Validation)
		return sc
	}

	s.review(ctx, sc)
	return sc
}

// review consults the LLM reviewer, if any. Reviewer failures let the
// submission through.
func (s *Screener) review(ctx context.Context, sc *Screening) {
	data := sc.Validation.SanitizedData

	if s.reviewer == nil {
		sc.ReviewStatus = ReviewDisabled
		return
	}
	if s.trusted.Contains(data.Email) {
		s.logger.Debug("Skipping review for trusted domain",
			zap.String("sender", data.Email),
			zap.String("action", "trusted_bypass"))
		sc.ReviewStatus = ReviewTrusted
		return
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	verdict, err := s.reviewer.ReviewSubmission(ctx, data)
	if err != nil {
		s.logger.Warn("Submission review failed, accepting", zap.Error(err))
		sc.ReviewStatus = ReviewFailed
		return
	}
	sc.ReviewStatus = ReviewDone
	sc.Verdict = verdict

	s.logger.Debug("Submission reviewed",
		zap.Float64("score", verdict.Score),
		zap.Float64("confidence", verdict.Confidence),
		zap.String("model", verdict.ModelUsed))

	if verdict.Score >= s.threshold {
		sc.Err = &SecurityError{
			Message: MessageSpam,
			Reasons: []string{"LLM review: " + verdict.Explanation},
			Spam:    true,
		}
	}
}

// securityError picks the client-facing text: spam and timing anomalies
// get a generic message, user-correctable problems are listed.
func securityError(result *content.ValidationResult) *SecurityError {
	reasons := append(append([]string{}, result.Errors...), result.Warnings...)
	switch {
	case result.IsSpam:
		return &SecurityError{Message: MessageSpam, Reasons: reasons, Spam: true}
	case result.SuspiciousTiming:
		return &SecurityError{Message: MessageUnverified, Reasons: reasons}
	default:
		return &SecurityError{Message: strings.Join(result.Errors, ", "), Reasons: reasons}
	}
}

package content

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/mikey/contact-guard/internal/domainlist"
	"golang.org/x/text/cases"
)

// Options tunes a Validator. Zero values fall back to the defaults.
type Options struct {
	MinFillTime time.Duration
	MaxFormAge  time.Duration

	// BlockedDomains are rejected in addition to DisposableDomains
	BlockedDomains []string

	// Now is the clock used for the timing check
	Now func() time.Time
}

// Validator runs the full contact-form check sequence
type Validator struct {
	minFill time.Duration
	maxAge  time.Duration
	blocked *domainlist.List
	now     func() time.Time
}

// NewValidator creates a validator from options
func NewValidator(opts Options) *Validator {
	v := &Validator{
		minFill: opts.MinFillTime,
		maxAge:  opts.MaxFormAge,
		blocked: defaultDisposable.Merge(opts.BlockedDomains),
		now:     opts.Now,
	}
	if v.minFill <= 0 {
		v.minFill = DefaultMinFillTime
	}
	if v.maxAge <= 0 {
		v.maxAge = DefaultMaxFormAge
	}
	if v.now == nil {
		v.now = time.Now
	}
	return v
}

var defaultValidator = NewValidator(Options{})

// ValidateContactForm validates a submission with the default options.
// startMs is the form start time in epoch milliseconds; 0 skips the timing check.
func ValidateContactForm(fields SubmissionFields, startMs int64) ValidationResult {
	return defaultValidator.Validate(fields, startMs)
}

// Validate runs presence, honeypot, email, length, timing, spam and
// duplicate checks in that order. Presence and honeypot failures return
// immediately; everything else accumulates.
func (v *Validator) Validate(fields SubmissionFields, startMs int64) ValidationResult {
	var errs []string
	if fields.Name == "" {
		errs = append(errs, "Name is required")
	}
	if fields.Email == "" {
		errs = append(errs, "Email is required")
	}
	if fields.Subject == "" {
		errs = append(errs, "Subject is required")
	}
	if fields.Message == "" {
		errs = append(errs, "Message is required")
	}
	if len(errs) > 0 {
		return ValidationResult{IsValid: false, IsSpam: false, Errors: errs, Warnings: []string{}}
	}

	data := SanitizedData{
		Name:     Sanitize(fields.Name),
		Email:    Sanitize(fields.Email),
		Subject:  Sanitize(fields.Subject),
		Message:  Sanitize(fields.Message),
		Honeypot: fields.Honeypot,
	}

	if honeypotTripped(data.Honeypot) {
		return ValidationResult{
			IsValid:  false,
			IsSpam:   true,
			Errors:   []string{"Bot detected"},
			Warnings: []string{},
		}
	}

	res := ValidationResult{Errors: []string{}, Warnings: []string{}}

	if ev := validateEmail(data.Email, v.blocked); !ev.IsValid {
		res.Errors = append(res.Errors, ev.Errors...)
	}

	nameLen := utf8.RuneCountInString(data.Name)
	subjectLen := utf8.RuneCountInString(data.Subject)
	messageLen := utf8.RuneCountInString(data.Message)

	if nameLen > MaxNameLength {
		res.Errors = append(res.Errors, fmt.Sprintf("Name too long (max %d characters)", MaxNameLength))
	}
	if subjectLen > MaxSubjectLength {
		res.Errors = append(res.Errors, fmt.Sprintf("Subject too long (max %d characters)", MaxSubjectLength))
	}
	if messageLen > MaxMessageLength {
		res.Errors = append(res.Errors, fmt.Sprintf("Message too long (max %d characters)", MaxMessageLength))
	}

	if nameLen < MinNameLength {
		res.Errors = append(res.Errors, fmt.Sprintf("Name must be at least %d characters", MinNameLength))
	}
	if subjectLen < MinSubjectLength {
		res.Errors = append(res.Errors, fmt.Sprintf("Subject must be at least %d characters", MinSubjectLength))
	}
	if messageLen < MinMessageLength {
		res.Errors = append(res.Errors, fmt.Sprintf("Message must be at least %d characters", MinMessageLength))
	}

	if startMs != 0 {
		if timing := validateTiming(startMs, v.now(), v.minFill, v.maxAge); !timing.IsValid {
			res.Errors = append(res.Errors, timing.Error)
			res.SuspiciousTiming = true
		}
	}

	messageSpam := DetectSpam(data.Message)
	subjectSpam := DetectSpam(data.Subject)
	if messageSpam.IsSpam || subjectSpam.IsSpam {
		res.IsSpam = true
		res.Warnings = append(res.Warnings, "Content flagged as potential spam")
	}
	res.DetectedPatterns = append(res.DetectedPatterns, messageSpam.DetectedPatterns...)
	res.DetectedPatterns = append(res.DetectedPatterns, subjectSpam.DetectedPatterns...)

	fold := cases.Fold()
	if fold.String(data.Message) == fold.String(data.Subject) {
		res.IsSpam = true
		res.Warnings = append(res.Warnings, "Identical subject and message")
	}

	res.IsValid = len(res.Errors) == 0 && !res.IsSpam
	if res.IsValid {
		res.SanitizedData = &data
	}
	return res
}

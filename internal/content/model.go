// Package content holds the checks a contact-form submission goes through
// before it is accepted: sanitization, spam heuristics, email validation,
// timing and honeypot checks, and the validator composing them.
package content

// Field length limits, in runes
const (
	MaxNameLength    = 100
	MaxEmailLength   = 254 // RFC 5321
	MaxSubjectLength = 200
	MaxMessageLength = 2000

	MinNameLength    = 2
	MinSubjectLength = 5
	MinMessageLength = 10
)

// SubmissionFields is the raw contact-form payload
type SubmissionFields struct {
	Name    string
	Email   string
	Subject string
	Message string

	// Honeypot is the decoy field value; humans never fill it
	Honeypot string

	// FormStartTime is the client-reported epoch milliseconds at which the
	// form was opened, 0 when absent
	FormStartTime int64

	// HoneypotFieldName is the randomized decoy field name shown to the client.
	// Informational only.
	HoneypotFieldName string
}

// SanitizedData is the submission after sanitization
type SanitizedData struct {
	Name     string
	Email    string
	Subject  string
	Message  string
	Honeypot string
}

// ValidationResult is the outcome of validating one submission.
// SanitizedData is non-nil if and only if IsValid is true.
type ValidationResult struct {
	IsValid  bool
	IsSpam   bool
	Errors   []string
	Warnings []string

	// SuspiciousTiming is set when the timing check failed
	SuspiciousTiming bool

	// DetectedPatterns lists the spam rules matched by subject or message
	DetectedPatterns []string

	SanitizedData *SanitizedData
}

// SpamCheckResult is the outcome of the spam heuristics on one text.
// IsSpam == (Confidence > SpamThreshold).
type SpamCheckResult struct {
	IsSpam           bool
	Confidence       int
	DetectedPatterns []string
}

// EmailValidation is the outcome of validating an email address
type EmailValidation struct {
	IsValid bool
	Errors  []string
}

// TimingResult is the outcome of the submission timing check
type TimingResult struct {
	IsValid bool
	Error   string
}

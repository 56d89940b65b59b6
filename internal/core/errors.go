package core

import (
	"fmt"
	"strings"
	"time"
)

// RateLimitError is returned when the client exceeded its quota or is blocked
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return "rate limit exceeded: " + e.Message
}

// ConfigError is returned when the service is missing configuration it
// needs to deliver a submission. Reason is safe to show to clients.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return "configuration error: " + e.Reason
}

func (e *ConfigError) Unwrap() error { return e.Err }

// InvalidInputError is returned when the request fails schema validation
type InvalidInputError struct {
	Problems []string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + strings.Join(e.Problems, ", ")
}

// SecurityError is returned when a submission is rejected by the
// honeypot, the spam heuristics, the timing check, the email deny-list or
// the LLM review. Message is what the client sees; Reasons stay in logs.
type SecurityError struct {
	Message string
	Reasons []string
	Spam    bool
}

func (e *SecurityError) Error() string {
	return "security validation failed: " + strings.Join(e.Reasons, "; ")
}

// DeliveryError is returned when the mailer failed
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to send email: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

package content

import (
	"fmt"
	"unicode/utf8"
)

// ValidateSchema checks the request shape before any sanitization:
// required fields, raw lengths and address syntax. It returns the failure
// messages in field order, or nil.
func ValidateSchema(f SubmissionFields) []string {
	var errs []string

	errs = append(errs, lengthErrors("Name", f.Name, MinNameLength, MaxNameLength)...)

	switch {
	case f.Email == "":
		errs = append(errs, "Email is required")
	case !emailPattern.MatchString(f.Email) || len(f.Email) > MaxEmailLength:
		errs = append(errs, "Please enter a valid email address")
	}

	errs = append(errs, lengthErrors("Subject", f.Subject, MinSubjectLength, MaxSubjectLength)...)
	errs = append(errs, lengthErrors("Message", f.Message, MinMessageLength, MaxMessageLength)...)

	return errs
}

func lengthErrors(field, value string, minLen, maxLen int) []string {
	if value == "" {
		return []string{field + " is required"}
	}
	n := utf8.RuneCountInString(value)
	if n < minLen {
		return []string{fmt.Sprintf("%s must be at least %d characters", field, minLen)}
	}
	if n > maxLen {
		return []string{fmt.Sprintf("%s must be at most %d characters", field, maxLen)}
	}
	return nil
}

package content

import (
	"fmt"
	"regexp"

	"github.com/mikey/contact-guard/internal/domainlist"
)

// RFC 5322 local part, DNS labels of at most 63 characters, at least one dot
var emailPattern = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@" +
	`[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?` +
	`(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)

// DisposableDomains are temporary-mailbox providers that are always rejected
var DisposableDomains = []string{
	"10minutemail.com",
	"tempmail.org",
	"guerrillamail.com",
	"mailinator.com",
	"throwaway.email",
}

var defaultDisposable = domainlist.New("disposable", DisposableDomains, nil)

// ValidateEmail checks an address against the default disposable list
func ValidateEmail(email string) EmailValidation {
	return validateEmail(email, defaultDisposable)
}

func validateEmail(email string, blocked *domainlist.List) EmailValidation {
	if email == "" {
		return EmailValidation{IsValid: false, Errors: []string{"Email is required"}}
	}

	var errs []string
	if !emailPattern.MatchString(email) {
		errs = append(errs, "Invalid email format")
	}
	if len(email) > MaxEmailLength {
		errs = append(errs, fmt.Sprintf("Email too long (max %d characters)", MaxEmailLength))
	}
	if blocked.Contains(email) {
		errs = append(errs, "Temporary email addresses are not allowed")
	}

	return EmailValidation{IsValid: len(errs) == 0, Errors: errs}
}

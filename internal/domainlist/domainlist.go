// Package domainlist matches email addresses against a set of domains.
package domainlist

import (
	"strings"

	"go.uber.org/zap"
)

// List is an immutable set of lower-cased email domains
type List struct {
	name    string
	domains map[string]struct{}
	logger  *zap.Logger
}

// New creates a domain list. Entries are trimmed and lower-cased; blanks are ignored.
// A nil logger disables debug output.
func New(name string, domains []string, logger *zap.Logger) *List {
	set := make(map[string]struct{}, len(domains))
	normalized := make([]string, 0, len(domains))
	for _, domain := range domains {
		d := strings.ToLower(strings.TrimSpace(domain))
		if d == "" {
			continue
		}
		if _, dup := set[d]; dup {
			continue
		}
		set[d] = struct{}{}
		normalized = append(normalized, d)
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized domain list", zap.String("list", name), zap.Strings("domains", normalized))
	}

	return &List{name: name, domains: set, logger: logger}
}

// Merge returns a new list holding the domains of both lists
func (l *List) Merge(extra []string) *List {
	all := make([]string, 0, len(l.domains)+len(extra))
	for d := range l.domains {
		all = append(all, d)
	}
	all = append(all, extra...)
	return New(l.name, all, nil)
}

// Len reports the number of domains in the list
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.domains)
}

// Domain extracts the lower-cased domain of an email address.
// It returns "" when the address does not contain exactly one '@'.
func Domain(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || strings.Contains(domain, "@") {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(domain))
}

// ContainsDomain reports whether the domain itself is listed
func (l *List) ContainsDomain(domain string) bool {
	if l == nil || len(l.domains) == 0 {
		return false
	}
	_, ok := l.domains[strings.ToLower(strings.TrimSpace(domain))]
	return ok
}

// Contains reports whether the domain of the email address is listed
func (l *List) Contains(email string) bool {
	domain := Domain(email)
	if domain == "" {
		return false
	}

	if !l.ContainsDomain(domain) {
		return false
	}
	if l.logger != nil {
		l.logger.Debug("Domain matched list",
			zap.String("list", l.name),
			zap.String("domain", domain))
	}
	return true
}

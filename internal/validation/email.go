package validation

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var disposableDomains = map[string]struct{}{
	"10minutemail.com":  {},
	"dispostable.com":   {},
	"fakeinbox.com":     {},
	"getnada.com":       {},
	"guerrillamail.com": {},
	"maildrop.cc":       {},
	"mailinator.com":    {},
	"mailnesia.com":     {},
	"mintemail.com":     {},
	"mohmal.com":        {},
	"sharklasers.com":   {},
	"temp-mail.org":     {},
	"tempmail.com":      {},
	"tempr.email":       {},
	"throwaway.email":   {},
	"trashmail.com":     {},
	"yopmail.com":       {},
}

var suspiciousTLDs = []string{".tk", ".ml", ".ga", ".cf", ".gq"}

// NormalizeEmail lowercases and trims an address without validating it.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func ValidateEmail(raw string) Result {
	email := NormalizeEmail(raw)
	if email == "" {
		return Result{Valid: true}
	}

	if !emailPattern.MatchString(email) {
		return invalid("Please enter a valid email address")
	}

	domain := email[strings.LastIndexByte(email, '@')+1:]
	if _, ok := disposableDomains[domain]; ok {
		return invalid("Disposable email addresses are not allowed")
	}
	for _, tld := range suspiciousTLDs {
		if strings.HasSuffix(domain, tld) {
			return invalid("Email addresses from this domain are not allowed")
		}
	}

	return Result{Valid: true, Normalized: email}
}

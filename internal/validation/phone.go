// Package validation normalizes and checks subscriber contact details.
package validation

import (
	"regexp"
	"strings"
)

// Result is the outcome of validating one contact field. An empty input is
// valid and yields an empty Normalized value.
type Result struct {
	Valid      bool
	Message    string
	Normalized string
}

const (
	phoneDigits       = 10
	maxRepeatedDigits = 8
)

var (
	mobilePattern   = regexp.MustCompile(`^[6-9][0-9]{9}$`)
	phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")

	forbiddenSequences = map[string]struct{}{
		"0123456789": {},
		"9876543210": {},
	}
)

func invalid(msg string) Result {
	return Result{Valid: false, Message: msg}
}

// NormalizePhoneNumber strips separators and the +91/91 country prefix.
func NormalizePhoneNumber(raw string) string {
	phone := phoneSeparators.Replace(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(phone, "+91") && len(phone)-3 >= phoneDigits:
		phone = phone[3:]
	case strings.HasPrefix(phone, "91") && len(phone) > phoneDigits:
		phone = phone[2:]
	}
	return phone
}

func ValidatePhoneNumber(raw string) Result {
	if strings.TrimSpace(raw) == "" {
		return Result{Valid: true}
	}

	phone := NormalizePhoneNumber(raw)

	if _, ok := forbiddenSequences[phone]; ok {
		return invalid("Invalid phone number pattern")
	}
	if strings.HasPrefix(phone, "0") {
		return invalid("Phone number cannot start with 0")
	}
	if len(phone) != phoneDigits || strings.Trim(phone, "0123456789") != "" {
		return invalid("Phone number must be exactly 10 digits")
	}
	if !mobilePattern.MatchString(phone) {
		return invalid("Please enter a valid mobile number starting with 6, 7, 8 or 9")
	}
	if hasRepeatedDigit(phone, maxRepeatedDigits) {
		return invalid("Invalid phone number pattern: too many repeated digits")
	}

	return Result{Valid: true, Normalized: phone}
}

func hasRepeatedDigit(phone string, limit int) bool {
	var counts [10]int
	for _, r := range phone {
		d := r - '0'
		if d < 0 || d > 9 {
			continue
		}
		counts[d]++
		if counts[d] >= limit {
			return true
		}
	}
	return false
}

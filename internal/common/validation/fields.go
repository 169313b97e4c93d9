// internal/common/validation/fields.go
package validation

import (
	"regexp"
	"strings"
)

// ValidationError carries a field-keyed, user-facing message.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

var (
	// Matches local@domain.tld, mirroring the landing page validator.
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	// International number after stripping formatting: optional leading +,
	// no leading zero, at most 16 characters total.
	phoneRegex = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)

	phoneStrip = regexp.MustCompile(`[\s\-\(\)]`)
)

// ValidateEmail returns a user-facing message for an invalid email, or "".
func ValidateEmail(email string) string {
	if email == "" {
		return "Email is required"
	}
	if !emailRegex.MatchString(email) {
		return "Please enter a valid email address"
	}
	return ""
}

// CleanPhone strips spaces, dashes and parentheses from a phone number.
func CleanPhone(phone string) string {
	return phoneStrip.ReplaceAllString(phone, "")
}

// ValidatePhone returns a user-facing message for an invalid phone, or "".
// Empty input is valid: phone is optional everywhere in the funnel.
func ValidatePhone(phone string) string {
	if phone == "" {
		return ""
	}
	clean := CleanPhone(phone)
	if len(clean) < 10 {
		return "Phone number must be at least 10 digits"
	}
	if len(clean) > 16 || !phoneRegex.MatchString(clean) {
		return "Please enter a valid phone number"
	}
	return ""
}

// ValidateName returns a user-facing message for a missing name, or "".
func ValidateName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Name is required"
	}
	return ""
}

// EmailDomain returns the domain part of an email, or "" if it has none.
func EmailDomain(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 && i+1 < len(email) {
		return email[i+1:]
	}
	return ""
}

package auth

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
)

// CountryCodePrefix is prepended to phone numbers submitted without one.
// The school serves a single region, so one fixed prefix is enough.
const CountryCodePrefix = "+91"

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that the address parses as a bare RFC 5322 address
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// NormalizeName trims, collapses inner whitespace, and title-cases a person's name
func NormalizeName(name string) string {
	fields := strings.Fields(name)
	for i, f := range fields {
		runes := []rune(strings.ToLower(f))
		runes[0] = unicode.ToUpper(runes[0])
		fields[i] = string(runes)
	}
	return strings.Join(fields, " ")
}

// NormalizePhone strips formatting characters and applies the fixed country
// prefix. Returns an error when the remaining digits are not a plausible
// subscriber number.
func NormalizePhone(phone string) (string, error) {
	var digits strings.Builder
	hadPlus := false
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '+' && i == 0:
			hadPlus = true
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
			// formatting, ignore
		default:
			return "", fmt.Errorf("invalid phone number character %q", r)
		}
	}

	number := digits.String()
	if hadPlus {
		if !strings.HasPrefix("+"+number, CountryCodePrefix) {
			return "", fmt.Errorf("unsupported country code")
		}
		number = strings.TrimPrefix("+"+number, CountryCodePrefix)
	}
	// Domestic numbers may carry the prefix without the plus
	trimmed := strings.TrimPrefix(CountryCodePrefix, "+")
	if len(number) == 10+len(trimmed) && strings.HasPrefix(number, trimmed) {
		number = number[len(trimmed):]
	}

	if len(number) != 10 {
		return "", fmt.Errorf("phone number must have 10 digits")
	}
	return CountryCodePrefix + number, nil
}

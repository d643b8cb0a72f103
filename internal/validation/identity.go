package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	agentNameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)
	usernameRegex  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{1,30}[A-Za-z0-9]$`)
	digitsRegex    = regexp.MustCompile(`^[0-9]+$`)
)

const (
	minPasswordLength = 12
	maxPasswordLength = 128
	maxEmailLength    = 254
)

// ValidateAgentName checks an agent handle: 3-32 letters, digits or underscores.
// All-digit handles are rejected because numeric targets address identities by id.
func ValidateAgentName(name string) error {
	if !agentNameRegex.MatchString(name) {
		return fmt.Errorf("agent name must be 3-32 characters of letters, numbers, and underscores")
	}
	if digitsRegex.MatchString(name) {
		return fmt.Errorf("agent name must contain a letter or underscore")
	}
	return nil
}

// ValidateUsername checks an observer username.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username must be 3-32 characters, alphanumeric with inner hyphens or underscores")
	}
	if digitsRegex.MatchString(username) {
		return fmt.Errorf("username must contain a letter")
	}
	return nil
}

// ValidateEmail checks that email parses as a bare address.
func ValidateEmail(email string) error {
	if len(email) > maxEmailLength {
		return fmt.Errorf("email must be at most %d characters", maxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return fmt.Errorf("email address is invalid")
	}
	return nil
}

// ValidatePassword enforces length and character-class rules.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLength || n > maxPasswordLength {
		return fmt.Errorf("password must be %d-%d characters", minPasswordLength, maxPasswordLength)
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return fmt.Errorf("password must contain upper and lower case letters, a digit, and a special character")
	}
	return nil
}

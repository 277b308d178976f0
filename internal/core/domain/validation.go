package domain

import (
	"fmt"
	"unicode/utf8"
)

const (
	// DefaultCodeLength is the number of digits in a reset code.
	DefaultCodeLength = 4

	minUsernameLength = 3
	maxUsernameLength = 50
	maxEmailLength    = 50
)

// Fields holds the user supplied values to check. Empty fields are treated as absent and skipped.
type Fields struct {
	Username string
	Email    string
	Code     string
}

// InputRules validates request fields. The email rule is deliberately a character whitelist
// rather than full address parsing.
type InputRules struct {
	CodeLength int
}

// DefaultInputRules validates four digit codes.
var DefaultInputRules = InputRules{CodeLength: DefaultCodeLength}

// Validate returns the first failing rule as a *ValidationError, or nil.
func (r InputRules) Validate(f Fields) error {
	codeLength := r.CodeLength
	if codeLength <= 0 {
		codeLength = DefaultCodeLength
	}

	if f.Username != "" {
		n := utf8.RuneCountInString(f.Username)
		switch {
		case n > maxUsernameLength:
			return invalid("username", "Username is too long")
		case n < minUsernameLength:
			return invalid("username", "Username is too short")
		case !onlyRunes(f.Username, isAlphanumeric):
			return invalid("username", "Username must be alphanumeric only")
		}
	}

	if f.Email != "" {
		switch {
		case !onlyRunes(f.Email, isEmailRune):
			return invalid("email", "Email must be alphanumeric only")
		case utf8.RuneCountInString(f.Email) > maxEmailLength:
			return invalid("email", "Email is too long")
		}
	}

	if f.Code != "" {
		switch {
		case utf8.RuneCountInString(f.Code) != codeLength:
			return invalid("code", fmt.Sprintf("Code must be %d digits long", codeLength))
		case !onlyRunes(f.Code, isDigit):
			return invalid("code", "Code must be numeric only")
		}
	}

	return nil
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func onlyRunes(s string, allowed func(rune) bool) bool {
	for _, r := range s {
		if !allowed(r) {
			return false
		}
	}
	return true
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isAlphanumeric(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isEmailRune(r rune) bool {
	return isAlphanumeric(r) || r == '@' || r == '.'
}

package validator

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	MaxPasswordLength = 16
	// SpecialCharacters is the set a password must draw at least one character from.
	SpecialCharacters = `!@#$%^&*(),.?":{}|<>`
)

var (
	ErrPasswordRequired  = errors.New("password is required")
	ErrPasswordTooLong   = errors.New("password must be max 16 characters")
	ErrPasswordNoUpper   = errors.New("password must contain at least 1 uppercase letter")
	ErrPasswordNoDigit   = errors.New("password must contain at least 1 number")
	ErrPasswordNoSpecial = errors.New("password must contain at least 1 special character")
)

// ValidatePassword enforces the credential policy. There is no minimum length
// beyond non-empty.
func ValidatePassword(pwd string) error {
	if pwd == "" {
		return ErrPasswordRequired
	}
	if utf8.RuneCountInString(pwd) > MaxPasswordLength {
		return ErrPasswordTooLong
	}

	var upper, digit, special bool
	for _, c := range pwd {
		switch {
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= '0' && c <= '9':
			digit = true
		case strings.ContainsRune(SpecialCharacters, c):
			special = true
		}
	}

	if !upper {
		return ErrPasswordNoUpper
	}
	if !digit {
		return ErrPasswordNoDigit
	}
	if !special {
		return ErrPasswordNoSpecial
	}
	return nil
}

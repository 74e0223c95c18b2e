package validation

import (
	"errors"
	"strings"
	"unicode"
)

const MinPasswordLength = 8

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordNumeric  = errors.New("password cannot be entirely numeric")
	ErrPasswordCommon   = errors.New("password is too common")
)

// A short deny-list of the passwords that dominate breach corpora. Enough to
// stop the worst choices without shipping a wordlist file.
var commonPasswords = map[string]struct{}{
	"password":    {},
	"password1":   {},
	"password123": {},
	"12345678":    {},
	"123456789":   {},
	"1234567890":  {},
	"qwerty123":   {},
	"qwertyuiop":  {},
	"iloveyou":    {},
	"letmein1":    {},
	"sunshine1":   {},
	"admin123":    {},
	"welcome1":    {},
	"monkey123":   {},
	"dragon123":   {},
	"baseball1":   {},
	"football1":   {},
	"trustno1":    {},
	"abc12345":    {},
	"11111111":    {},
}

// CheckPassword enforces the account credential policy: minimum length,
// not purely numeric, not a known-common password.
func CheckPassword(pw string) error {
	if len(pw) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	numeric := true
	for _, r := range pw {
		if !unicode.IsDigit(r) {
			numeric = false
			break
		}
	}
	if numeric {
		return ErrPasswordNumeric
	}
	if _, ok := commonPasswords[strings.ToLower(pw)]; ok {
		return ErrPasswordCommon
	}
	return nil
}

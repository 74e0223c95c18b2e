package entity

import "time"

// TokenPurpose selects which account flow a token serves.
type TokenPurpose string

const (
	PurposeVerifyEmail   TokenPurpose = "verify_email"
	PurposeResetPassword TokenPurpose = "reset_password"
)

// Per-purpose time-to-live. A token past its TTL is dead weight; rows are
// small and inert, so nothing depends on them being deleted.
var tokenTTL = map[TokenPurpose]time.Duration{
	PurposeVerifyEmail:   7 * 24 * time.Hour,
	PurposeResetPassword: time.Hour,
}

// TokenTTL returns the validity window for a purpose.
func TokenTTL(p TokenPurpose) time.Duration {
	return tokenTTL[p]
}

// Token is a single-use, time-limited secret bound to a user and a purpose.
// Many tokens may exist per user; each tracks its own validity.
type Token struct {
	ID        int64
	UserID    string
	Value     string
	Purpose   TokenPurpose
	Used      bool
	CreatedAt time.Time
}

// Valid reports whether the token can still be consumed at the given instant.
func (t *Token) Valid(now time.Time) bool {
	if t.Used {
		return false
	}
	return now.Sub(t.CreatedAt) < TokenTTL(t.Purpose)
}

package entity

import (
	"time"
)

// User is the aggregate root for the account domain.
// Password holds a bcrypt hash; it is empty for accounts created through
// social login that never set a password.
type User struct {
	ID               string
	Email            string
	Password         string
	EmailVerified    bool
	EmailVerifiedAt  *time.Time
	StripeCustomerID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DaysUntilDeletion reports how many days remain before an unverified account
// is removed by the sweeper. Returns nil for verified accounts.
func (u *User) DaysUntilDeletion(grace time.Duration, now time.Time) *int {
	if u.EmailVerified {
		return nil
	}
	remaining := int((grace - now.Sub(u.CreatedAt)).Hours() / 24)
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

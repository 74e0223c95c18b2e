package entity

import "time"

// Subscription mirrors the billing provider's subscription object for the
// pieces the dashboard needs. The provider remains the source of truth;
// rows here are updated from webhook events.
type Subscription struct {
	ID                   string
	UserID               string
	StripeSubscriptionID string
	StripePriceID        string
	Status               string // trialing, active, past_due, canceled, ...
	CurrentPeriodEnd     time.Time
	CancelAtPeriodEnd    bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Active reports whether the subscription currently grants access.
func (s *Subscription) Active() bool {
	return s.Status == "active" || s.Status == "trialing"
}

// Trialing reports whether the subscription is in its trial period.
func (s *Subscription) Trialing() bool {
	return s.Status == "trialing"
}

// DaysUntilPeriodEnd returns whole days left in the current billing period.
func (s *Subscription) DaysUntilPeriodEnd(now time.Time) int {
	d := int(s.CurrentPeriodEnd.Sub(now).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	portalsession "github.com/stripe/stripe-go/v76/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/customer"
	stripesub "github.com/stripe/stripe-go/v76/subscription"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/launchbase/launchbase/config"
	"github.com/launchbase/launchbase/internal/domain/entity"
	"github.com/launchbase/launchbase/internal/domain/repository"
)

// ErrNoSubscription is returned when a user has never subscribed.
var ErrNoSubscription = errors.New("no subscription")

// BillingService fronts Stripe: checkout and portal session creation on the
// way out, webhook-driven subscription state on the way in. The local
// subscriptions table is a cache of Stripe's state, refreshed by webhooks.
type BillingService struct {
	Users repository.UserRepository
	Subs  repository.SubscriptionRepository
	Cfg   *config.Config
	Log   *logrus.Logger
}

func NewBillingService(users repository.UserRepository, subs repository.SubscriptionRepository, cfg *config.Config, log *logrus.Logger) *BillingService {
	stripe.Key = cfg.StripeSecretKey
	return &BillingService{Users: users, Subs: subs, Cfg: cfg, Log: log}
}

// ensureCustomer returns the user's Stripe customer ID, creating the
// customer on first use.
func (s *BillingService) ensureCustomer(ctx context.Context, user *entity.User) (string, error) {
	if user.StripeCustomerID != "" {
		return user.StripeCustomerID, nil
	}
	params := &stripe.CustomerParams{
		Email: stripe.String(user.Email),
	}
	params.AddMetadata("user_id", user.ID)
	c, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	if err := s.Users.SetStripeCustomerID(ctx, user.ID, c.ID); err != nil {
		return "", err
	}
	user.StripeCustomerID = c.ID
	return c.ID, nil
}

// CreateCheckoutSession starts a subscription checkout and returns the
// hosted page URL.
func (s *BillingService) CreateCheckoutSession(ctx context.Context, userID string) (string, error) {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	custID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return "", err
	}

	subData := &stripe.CheckoutSessionSubscriptionDataParams{
		Metadata: map[string]string{"user_id": user.ID},
	}
	if s.Cfg.StripeTrialDays > 0 {
		subData.TrialPeriodDays = stripe.Int64(s.Cfg.StripeTrialDays)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(custID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.Cfg.StripePriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData:    subData,
		AllowPromotionCodes: stripe.Bool(s.Cfg.StripeAllowPromo),
		SuccessURL:          stripe.String(s.Cfg.StripeSuccessURL),
		CancelURL:           stripe.String(s.Cfg.StripeCancelURL),
	}
	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// CreatePortalSession opens the Stripe billing portal for an existing
// customer.
func (s *BillingService) CreatePortalSession(ctx context.Context, userID string) (string, error) {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	if user.StripeCustomerID == "" {
		return "", ErrNoSubscription
	}
	sess, err := portalsession.New(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(user.StripeCustomerID),
		ReturnURL: stripe.String(s.Cfg.StripePortalReturnURL),
	})
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return sess.URL, nil
}

// GetSubscription returns the cached subscription for a user.
func (s *BillingService) GetSubscription(ctx context.Context, userID string) (*entity.Subscription, error) {
	sub, err := s.Subs.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoSubscription
		}
		return nil, err
	}
	return sub, nil
}

// HandleWebhook verifies the Stripe signature and applies subscription
// lifecycle events to the local cache. Unhandled event types are
// acknowledged without action.
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, s.Cfg.StripeWebhookSecret)
	if err != nil {
		return fmt.Errorf("verify webhook signature: %w", err)
	}

	switch event.Type {
	case "customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted":
		var stripeSub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
			return fmt.Errorf("decode subscription event: %w", err)
		}
		return s.applySubscription(ctx, &stripeSub, string(event.Type))
	case "checkout.session.completed":
		// The event carries only a subscription reference, so the full
		// object is fetched before syncing.
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("decode checkout session event: %w", err)
		}
		if sess.Subscription == nil {
			s.Log.WithField("session", sess.ID).Debug("checkout session without subscription, ignoring")
			return nil
		}
		full, err := stripesub.Get(sess.Subscription.ID, nil)
		if err != nil {
			return fmt.Errorf("fetch subscription %s: %w", sess.Subscription.ID, err)
		}
		return s.applySubscription(ctx, full, string(event.Type))
	default:
		s.Log.WithField("event", event.Type).Debug("ignoring webhook event")
	}
	return nil
}

func (s *BillingService) applySubscription(ctx context.Context, stripeSub *stripe.Subscription, eventType string) error {
	sub, err := SubscriptionFromStripe(stripeSub)
	if err != nil {
		s.Log.WithError(err).WithField("event", eventType).Warn("skipping unmappable subscription event")
		return nil
	}
	if err := s.Subs.Upsert(ctx, sub); err != nil {
		return err
	}
	s.Log.WithFields(logrus.Fields{
		"event":   eventType,
		"user_id": sub.UserID,
		"status":  sub.Status,
	}).Info("subscription state updated")
	return nil
}

// SubscriptionFromStripe maps a Stripe subscription object onto the local
// entity. The owning user is identified by the user_id metadata stamped at
// checkout.
func SubscriptionFromStripe(sub *stripe.Subscription) (*entity.Subscription, error) {
	userID := sub.Metadata["user_id"]
	if userID == "" {
		return nil, errors.New("subscription has no user_id metadata")
	}
	priceID := ""
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		priceID = sub.Items.Data[0].Price.ID
	}
	return &entity.Subscription{
		UserID:               userID,
		StripeSubscriptionID: sub.ID,
		StripePriceID:        priceID,
		Status:               string(sub.Status),
		CurrentPeriodEnd:     time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
	}, nil
}

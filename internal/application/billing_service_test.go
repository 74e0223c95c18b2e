package application

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"github.com/launchbase/launchbase/config"
	"github.com/launchbase/launchbase/internal/domain/entity"
	"github.com/launchbase/launchbase/internal/domain/repository"
)

type fakeSubRepo struct {
	upserts []*entity.Subscription
}

func (r *fakeSubRepo) Upsert(ctx context.Context, s *entity.Subscription) error {
	r.upserts = append(r.upserts, s)
	return nil
}

func (r *fakeSubRepo) GetByUserID(ctx context.Context, userID string) (*entity.Subscription, error) {
	for i := len(r.upserts) - 1; i >= 0; i-- {
		if r.upserts[i].UserID == userID {
			return r.upserts[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

var _ repository.SubscriptionRepository = (*fakeSubRepo)(nil)

const testWebhookSecret = "whsec_test"

// signStripePayload produces the Stripe-Signature header value for a payload,
// the same HMAC scheme the real webhooks carry.
func signStripePayload(payload string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func newTestBillingService(subs *fakeSubRepo) *BillingService {
	cfg := &config.Config{StripeWebhookSecret: testWebhookSecret}
	return NewBillingService(newFakeUserRepo(), subs, cfg, testLogger())
}

func TestWebhookSubscriptionEventUpdatesCache(t *testing.T) {
	subs := &fakeSubRepo{}
	svc := newTestBillingService(subs)

	payload := fmt.Sprintf(`{
		"id": "evt_1",
		"api_version": %q,
		"type": "customer.subscription.updated",
		"data": {"object": {
			"id": "sub_123",
			"object": "subscription",
			"status": "active",
			"current_period_end": 1790000000,
			"cancel_at_period_end": false,
			"metadata": {"user_id": "u1"},
			"items": {"object": "list", "data": [{"price": {"id": "price_abc"}}]}
		}}
	}`, stripe.APIVersion)

	err := svc.HandleWebhook(context.Background(), []byte(payload), signStripePayload(payload))
	require.NoError(t, err)
	require.Len(t, subs.upserts, 1)
	require.Equal(t, "u1", subs.upserts[0].UserID)
	require.Equal(t, "sub_123", subs.upserts[0].StripeSubscriptionID)
	require.Equal(t, "active", subs.upserts[0].Status)
}

func TestWebhookCheckoutCompletedWithoutSubscription(t *testing.T) {
	subs := &fakeSubRepo{}
	svc := newTestBillingService(subs)

	// A payment-mode checkout has no subscription to sync.
	payload := fmt.Sprintf(`{
		"id": "evt_2",
		"api_version": %q,
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"object": "checkout.session",
			"mode": "payment",
			"subscription": null
		}}
	}`, stripe.APIVersion)

	err := svc.HandleWebhook(context.Background(), []byte(payload), signStripePayload(payload))
	require.NoError(t, err)
	require.Empty(t, subs.upserts)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	subs := &fakeSubRepo{}
	svc := newTestBillingService(subs)

	payload := `{"id": "evt_3", "type": "customer.subscription.updated", "data": {"object": {}}}`
	err := svc.HandleWebhook(context.Background(), []byte(payload), "t=1,v1=deadbeef")
	require.Error(t, err)
	require.Empty(t, subs.upserts)
}

func TestSubscriptionFromStripe(t *testing.T) {
	periodEnd := time.Date(2026, 9, 29, 0, 0, 0, 0, time.UTC)
	src := &stripe.Subscription{
		ID:                "sub_123",
		Status:            stripe.SubscriptionStatusTrialing,
		CurrentPeriodEnd:  periodEnd.Unix(),
		CancelAtPeriodEnd: true,
		Metadata:          map[string]string{"user_id": "u1"},
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{
				{Price: &stripe.Price{ID: "price_abc"}},
			},
		},
	}

	sub, err := SubscriptionFromStripe(src)
	require.NoError(t, err)
	require.Equal(t, "u1", sub.UserID)
	require.Equal(t, "sub_123", sub.StripeSubscriptionID)
	require.Equal(t, "price_abc", sub.StripePriceID)
	require.Equal(t, "trialing", sub.Status)
	require.True(t, sub.CancelAtPeriodEnd)
	require.True(t, sub.CurrentPeriodEnd.Equal(periodEnd))
	require.True(t, sub.Active())
	require.True(t, sub.Trialing())
}

func TestSubscriptionFromStripeMissingUser(t *testing.T) {
	_, err := SubscriptionFromStripe(&stripe.Subscription{ID: "sub_123"})
	require.Error(t, err)
}

func TestSubscriptionFromStripeNoItems(t *testing.T) {
	sub, err := SubscriptionFromStripe(&stripe.Subscription{
		ID:       "sub_456",
		Status:   stripe.SubscriptionStatusCanceled,
		Metadata: map[string]string{"user_id": "u2"},
	})
	require.NoError(t, err)
	require.Empty(t, sub.StripePriceID)
	require.False(t, sub.Active())
}

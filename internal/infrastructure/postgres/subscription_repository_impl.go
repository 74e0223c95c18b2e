package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/launchbase/launchbase/internal/domain/entity"
	"github.com/launchbase/launchbase/internal/domain/repository"
)

type SubscriptionRepository struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepository(pool *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

// Upsert keeps one cached row per user: a replacement subscription from
// Stripe takes over the row instead of accumulating history.
func (r *SubscriptionRepository) Upsert(ctx context.Context, s *entity.Subscription) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO subscriptions
			(user_id, stripe_subscription_id, stripe_price_id, status, current_period_end, cancel_at_period_end)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			stripe_price_id = EXCLUDED.stripe_price_id,
			status = EXCLUDED.status,
			current_period_end = EXCLUDED.current_period_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			updated_at = now()
		RETURNING id, created_at, updated_at
	`, s.UserID, s.StripeSubscriptionID, s.StripePriceID, s.Status, s.CurrentPeriodEnd, s.CancelAtPeriodEnd)

	return row.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func (r *SubscriptionRepository) GetByUserID(ctx context.Context, userID string) (*entity.Subscription, error) {
	s := &entity.Subscription{}
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, stripe_subscription_id, COALESCE(stripe_price_id, ''), status,
			current_period_end, cancel_at_period_end, created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1
	`, userID)

	if err := row.Scan(&s.ID, &s.UserID, &s.StripeSubscriptionID, &s.StripePriceID, &s.Status,
		&s.CurrentPeriodEnd, &s.CancelAtPeriodEnd, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

var _ repository.SubscriptionRepository = (*SubscriptionRepository)(nil)

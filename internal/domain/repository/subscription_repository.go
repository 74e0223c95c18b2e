package repository

import (
	"context"

	"github.com/launchbase/launchbase/internal/domain/entity"
)

// SubscriptionRepository stores the local mirror of provider subscriptions.
type SubscriptionRepository interface {
	// Upsert inserts or replaces the single cached row for the user.
	Upsert(ctx context.Context, s *entity.Subscription) error
	GetByUserID(ctx context.Context, userID string) (*entity.Subscription, error)
}

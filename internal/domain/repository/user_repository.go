package repository

import (
	"context"
	"time"

	"github.com/launchbase/launchbase/internal/domain/entity"
)

// UserRepository defines user persistence operations. Email lookups are
// case-insensitive.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	MarkVerified(ctx context.Context, id string) error
	SetStripeCustomerID(ctx context.Context, id, customerID string) error

	// DeleteUnverifiedBefore removes accounts still unverified that were
	// created before the cutoff, re-checking the verified flag at delete
	// time. Tokens cascade. Returns the number of accounts removed.
	DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

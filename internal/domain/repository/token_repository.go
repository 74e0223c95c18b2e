package repository

import (
	"context"
	"time"

	"github.com/launchbase/launchbase/internal/domain/entity"
)

// TokenRepository persists and consumes single-use account tokens.
//
// The Consume* methods are the verification/reset gateway: each runs a single
// transaction that flips the token to used (only if still unused and inside
// its TTL) and applies the account mutation. Both commit or neither does, so a
// crash between the two steps can never leave a replayable token, and of two
// concurrent consumers exactly one wins while the loser gets ErrInvalidToken.
type TokenRepository interface {
	Create(ctx context.Context, t *entity.Token) error

	// ConsumeForVerification marks the owning account verified.
	// Returns the account id on success.
	ConsumeForVerification(ctx context.Context, value string) (string, error)

	// ConsumeForPasswordReset overwrites the owning account's credential hash.
	// Returns the account id on success.
	ConsumeForPasswordReset(ctx context.Context, value, passwordHash string) (string, error)

	// DeleteDead removes tokens that are used or past their TTL at the given
	// instant. Housekeeping only; correctness never depends on it.
	DeleteDead(ctx context.Context, now time.Time) (int64, error)
}

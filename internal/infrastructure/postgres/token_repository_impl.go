package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/launchbase/launchbase/internal/domain/entity"
	"github.com/launchbase/launchbase/internal/domain/repository"
)

type TokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

func (r *TokenRepository) Create(ctx context.Context, t *entity.Token) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tokens (user_id, value, purpose)
		VALUES ($1, $2, $3)
		RETURNING id, used, created_at
	`, t.UserID, t.Value, t.Purpose)

	if err := row.Scan(&t.ID, &t.Used, &t.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// consume flips a still-valid token to used and returns the owner id. The
// UPDATE takes the row lock, so of two concurrent consumers the second one
// re-reads used=true and matches nothing.
func consume(ctx context.Context, tx pgx.Tx, value string, purpose entity.TokenPurpose) (string, error) {
	ttl := entity.TokenTTL(purpose)
	var userID string
	err := tx.QueryRow(ctx, `
		UPDATE tokens
		SET used = true
		WHERE value = $1
		  AND purpose = $2
		  AND used = false
		  AND created_at > now() - ($3 * interval '1 second')
		RETURNING user_id
	`, value, purpose, ttl.Seconds()).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", repository.ErrInvalidToken
		}
		return "", err
	}
	return userID, nil
}

func (r *TokenRepository) ConsumeForVerification(ctx context.Context, value string) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	userID, err := consume(ctx, tx, value, entity.PurposeVerifyEmail)
	if err != nil {
		return "", err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE users
		SET email_verified = true, email_verified_at = now(), updated_at = now()
		WHERE id = $1 AND email_verified = false
	`, userID); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return userID, nil
}

func (r *TokenRepository) ConsumeForPasswordReset(ctx context.Context, value, passwordHash string) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	userID, err := consume(ctx, tx, value, entity.PurposeResetPassword)
	if err != nil {
		return "", err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE users
		SET password_hash = $1, updated_at = now()
		WHERE id = $2
	`, passwordHash, userID); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return userID, nil
}

func (r *TokenRepository) DeleteDead(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.pool.Exec(ctx, `
		DELETE FROM tokens
		WHERE used = true
		   OR (purpose = $1 AND created_at < $3 - ($4 * interval '1 second'))
		   OR (purpose = $2 AND created_at < $3 - ($5 * interval '1 second'))
	`, entity.PurposeVerifyEmail, entity.PurposeResetPassword, now,
		entity.TokenTTL(entity.PurposeVerifyEmail).Seconds(),
		entity.TokenTTL(entity.PurposeResetPassword).Seconds())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

var _ repository.TokenRepository = (*TokenRepository)(nil)

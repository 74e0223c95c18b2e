package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/launchbase/launchbase/internal/domain/entity"
	"github.com/launchbase/launchbase/internal/domain/repository"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, email, COALESCE(password_hash, ''), email_verified, email_verified_at,
	COALESCE(stripe_customer_id, ''), created_at, updated_at`

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.EmailVerified, &u.EmailVerifiedAt,
		&u.StripeCustomerID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	var hash any
	if u.Password != "" {
		hash = u.Password
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, email_verified, email_verified_at)
		VALUES (lower($1), $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, u.Email, hash, u.EmailVerified, u.EmailVerifiedAt)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	u.Email = strings.ToLower(u.Email)
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE lower(email) = lower($1)
	`, email))
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET password_hash = $1, updated_at = now()
		WHERE id = $2
	`, passwordHash, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) MarkVerified(ctx context.Context, id string) error {
	// Scoped to unverified rows so the flag and timestamp stay consistent
	// and repeat calls are no-ops.
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET email_verified = true, email_verified_at = now(), updated_at = now()
		WHERE id = $1 AND email_verified = false
	`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		// Either missing or already verified; distinguish for callers.
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
	}
	return nil
}

func (r *UserRepository) SetStripeCustomerID(ctx context.Context, id, customerID string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET stripe_customer_id = $1, updated_at = now()
		WHERE id = $2
	`, customerID, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	// Single conditional delete: the verified flag is re-evaluated row by row
	// at delete time, so an account verified moments earlier survives.
	res, err := r.pool.Exec(ctx, `
		DELETE FROM users
		WHERE email_verified = false AND created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

var _ repository.UserRepository = (*UserRepository)(nil)

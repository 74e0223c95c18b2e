package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/launchbase/launchbase/internal/domain/repository"
)

// Sweeper deletes accounts that never verified their email within the grace
// window, and vacuums dead tokens. Both jobs run from the scheduler process.
type Sweeper struct {
	Users  repository.UserRepository
	Tokens repository.TokenRepository
	Grace  time.Duration
	Log    *logrus.Logger
}

func NewSweeper(users repository.UserRepository, tokens repository.TokenRepository, grace time.Duration, log *logrus.Logger) *Sweeper {
	return &Sweeper{Users: users, Tokens: tokens, Grace: grace, Log: log}
}

// Sweep removes unverified accounts older than the grace window. The cutoff
// is evaluated inside the delete itself, so an account verified between
// scheduling and execution survives. Tokens go with the account via the
// foreign key cascade.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.Grace)
	n, err := s.Users.DeleteUnverifiedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.Log.WithFields(logrus.Fields{
		"deleted": n,
		"cutoff":  cutoff.Format(time.RFC3339),
	}).Info("unverified account sweep complete")
	return n, nil
}

// VacuumTokens deletes used and expired tokens. Purely hygienic; consumption
// never trusts a token's presence alone.
func (s *Sweeper) VacuumTokens(ctx context.Context) (int64, error) {
	n, err := s.Tokens.DeleteDead(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	s.Log.WithField("deleted", n).Info("token vacuum complete")
	return n, nil
}

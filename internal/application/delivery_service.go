package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/launchbase/launchbase/config"
	"github.com/launchbase/launchbase/internal/domain/entity"
	"github.com/launchbase/launchbase/internal/domain/repository"
	"github.com/launchbase/launchbase/pkg/helpers"
	"github.com/launchbase/launchbase/pkg/mailer"
	"github.com/launchbase/launchbase/pkg/mailer/templates"
)

const (
	tokenEntropyBytes = 32
	issueRetries      = 3
)

// DeliveryService runs inside the email worker. It turns a queued
// DeliveryJob into a freshly issued token and a sent email. Tokens are
// minted here, not at dispatch time, so a redelivered job never resends a
// stale link.
type DeliveryService struct {
	Users  repository.UserRepository
	Tokens repository.TokenRepository
	Sender mailer.Sender
	Geo    templates.GeoResolver
	Cfg    *config.Config
	Log    *logrus.Logger
}

func NewDeliveryService(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	sender mailer.Sender,
	geo templates.GeoResolver,
	cfg *config.Config,
	log *logrus.Logger,
) *DeliveryService {
	return &DeliveryService{Users: users, Tokens: tokens, Sender: sender, Geo: geo, Cfg: cfg, Log: log}
}

// HandleJob processes one queued delivery. Returning nil acks the message;
// returning an error requeues it. Jobs that can never succeed (deleted user,
// already-verified account) are acked without sending.
func (s *DeliveryService) HandleJob(ctx context.Context, job mailer.DeliveryJob) error {
	purpose := entity.TokenPurpose(job.Purpose)
	switch purpose {
	case entity.PurposeVerifyEmail, entity.PurposeResetPassword:
	default:
		s.Log.WithField("purpose", job.Purpose).Warn("dropping job with unknown purpose")
		return nil
	}

	user, err := s.Users.GetByID(ctx, job.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.Log.WithField("user_id", job.UserID).Info("user gone, dropping delivery job")
			return nil
		}
		return err
	}
	if purpose == entity.PurposeVerifyEmail && user.EmailVerified {
		s.Log.WithField("user_id", user.ID).Info("already verified, dropping verification job")
		return nil
	}

	token, err := s.issueToken(ctx, user.ID, purpose)
	if err != nil {
		return err
	}

	data := templates.NewEmailData(s.Cfg, user.Email, s.actionURL(purpose, token.Value),
		templates.WithIP(job.IP),
		templates.WithUserAgent(job.UserAgent),
		templates.WithTime(token.CreatedAt),
		templates.WithExpiresIn(entity.TokenTTL(purpose)),
		templates.WithGeoFromIP(ctx, s.Geo, job.IP),
	)

	subject, text, html, err := templates.Render(templateName(purpose), data)
	if err != nil {
		return fmt.Errorf("render %s email: %w", purpose, err)
	}
	if err := s.Sender.Send(ctx, user.Email, subject, text, html); err != nil {
		return fmt.Errorf("send %s email: %w", purpose, err)
	}

	s.Log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"purpose": purpose,
	}).Info("account email sent")
	return nil
}

// issueToken mints a random token and persists it, retrying on a value
// collision. The unique index on (purpose, value) is the only dedupe.
func (s *DeliveryService) issueToken(ctx context.Context, userID string, purpose entity.TokenPurpose) (*entity.Token, error) {
	var lastErr error
	for i := 0; i < issueRetries; i++ {
		value, err := helpers.GenerateToken(tokenEntropyBytes)
		if err != nil {
			return nil, err
		}
		token := &entity.Token{
			UserID:    userID,
			Value:     value,
			Purpose:   purpose,
			CreatedAt: time.Now().UTC(),
		}
		err = s.Tokens.Create(ctx, token)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("issue %s token: %w", purpose, lastErr)
}

func (s *DeliveryService) actionURL(purpose entity.TokenPurpose, value string) string {
	base := s.Cfg.VerifyEmailURL
	if purpose == entity.PurposeResetPassword {
		base = s.Cfg.ResetPasswordURL
	}
	return strings.TrimRight(base, "/") + "/" + value
}

func templateName(purpose entity.TokenPurpose) string {
	if purpose == entity.PurposeResetPassword {
		return templates.ResetPassword
	}
	return templates.VerifyEmail
}

package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/launchbase/launchbase/config"
	"github.com/launchbase/launchbase/internal/domain/entity"
	"github.com/launchbase/launchbase/internal/domain/repository"
	"github.com/launchbase/launchbase/pkg/mailer"
)

func newTestDeliveryService(users *fakeUserRepo, tokens *fakeTokenRepo, sender *fakeSender) *DeliveryService {
	cfg := &config.Config{
		AppName:          "launchbase",
		VerifyEmailURL:   "https://app.example.com/verify-email",
		ResetPasswordURL: "https://app.example.com/reset-password",
	}
	return NewDeliveryService(users, tokens, sender, nil, cfg, testLogger())
}

func TestHandleJobIssuesFreshTokenAndSends(t *testing.T) {
	users := newFakeUserRepo(&entity.User{ID: "u1", Email: "pending@example.com", CreatedAt: time.Now().UTC()})
	tokens := &fakeTokenRepo{}
	sender := &fakeSender{}
	svc := newTestDeliveryService(users, tokens, sender)

	job := mailer.DeliveryJob{UserID: "u1", Purpose: string(entity.PurposeVerifyEmail), IP: "203.0.113.7"}
	require.NoError(t, svc.HandleJob(context.Background(), job))

	require.Len(t, tokens.created, 1)
	tok := tokens.created[0]
	require.Equal(t, "u1", tok.UserID)
	require.Equal(t, entity.PurposeVerifyEmail, tok.Purpose)
	require.NotEmpty(t, tok.Value)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	require.Equal(t, "pending@example.com", msg.To)
	require.Equal(t, "Verify your email address", msg.Subject)
	require.Contains(t, msg.Text, "https://app.example.com/verify-email/"+tok.Value)
	require.Contains(t, msg.HTML, tok.Value)
}

func TestHandleJobEachDeliveryGetsOwnToken(t *testing.T) {
	users := newFakeUserRepo(&entity.User{ID: "u1", Email: "pending@example.com"})
	tokens := &fakeTokenRepo{}
	sender := &fakeSender{}
	svc := newTestDeliveryService(users, tokens, sender)

	job := mailer.DeliveryJob{UserID: "u1", Purpose: string(entity.PurposeVerifyEmail)}
	require.NoError(t, svc.HandleJob(context.Background(), job))
	require.NoError(t, svc.HandleJob(context.Background(), job))

	require.Len(t, tokens.created, 2)
	require.NotEqual(t, tokens.created[0].Value, tokens.created[1].Value)
}

func TestHandleJobResetUsesResetURL(t *testing.T) {
	users := newFakeUserRepo(&entity.User{ID: "u1", Email: "user@example.com"})
	tokens := &fakeTokenRepo{}
	sender := &fakeSender{}
	svc := newTestDeliveryService(users, tokens, sender)

	job := mailer.DeliveryJob{UserID: "u1", Purpose: string(entity.PurposeResetPassword)}
	require.NoError(t, svc.HandleJob(context.Background(), job))

	require.Len(t, sender.sent, 1)
	require.Equal(t, "Reset your password", sender.sent[0].Subject)
	require.Contains(t, sender.sent[0].Text, "https://app.example.com/reset-password/"+tokens.created[0].Value)
}

func TestHandleJobDropsWhenUserGone(t *testing.T) {
	svc := newTestDeliveryService(newFakeUserRepo(), &fakeTokenRepo{}, &fakeSender{})

	job := mailer.DeliveryJob{UserID: "ghost", Purpose: string(entity.PurposeVerifyEmail)}
	// nil means ack: the job can never succeed, requeueing would loop forever.
	require.NoError(t, svc.HandleJob(context.Background(), job))
}

func TestHandleJobDropsVerificationForVerifiedUser(t *testing.T) {
	users := newFakeUserRepo(&entity.User{ID: "u1", Email: "done@example.com", EmailVerified: true})
	tokens := &fakeTokenRepo{}
	sender := &fakeSender{}
	svc := newTestDeliveryService(users, tokens, sender)

	job := mailer.DeliveryJob{UserID: "u1", Purpose: string(entity.PurposeVerifyEmail)}
	require.NoError(t, svc.HandleJob(context.Background(), job))
	require.Empty(t, tokens.created)
	require.Empty(t, sender.sent)

	// A reset still goes out for a verified user.
	job.Purpose = string(entity.PurposeResetPassword)
	require.NoError(t, svc.HandleJob(context.Background(), job))
	require.Len(t, sender.sent, 1)
}

func TestHandleJobDropsUnknownPurpose(t *testing.T) {
	users := newFakeUserRepo(&entity.User{ID: "u1", Email: "user@example.com"})
	sender := &fakeSender{}
	svc := newTestDeliveryService(users, &fakeTokenRepo{}, sender)

	job := mailer.DeliveryJob{UserID: "u1", Purpose: "newsletter"}
	require.NoError(t, svc.HandleJob(context.Background(), job))
	require.Empty(t, sender.sent)
}

func TestHandleJobRetriesOnTokenCollision(t *testing.T) {
	users := newFakeUserRepo(&entity.User{ID: "u1", Email: "user@example.com"})
	tokens := &fakeTokenRepo{createErrs: []error{repository.ErrDuplicate, repository.ErrDuplicate}}
	sender := &fakeSender{}
	svc := newTestDeliveryService(users, tokens, sender)

	job := mailer.DeliveryJob{UserID: "u1", Purpose: string(entity.PurposeVerifyEmail)}
	require.NoError(t, svc.HandleJob(context.Background(), job))
	require.Len(t, sender.sent, 1)
}

func TestHandleJobGivesUpAfterRepeatedCollisions(t *testing.T) {
	users := newFakeUserRepo(&entity.User{ID: "u1", Email: "user@example.com"})
	tokens := &fakeTokenRepo{createErrs: []error{
		repository.ErrDuplicate, repository.ErrDuplicate, repository.ErrDuplicate,
	}}
	sender := &fakeSender{}
	svc := newTestDeliveryService(users, tokens, sender)

	job := mailer.DeliveryJob{UserID: "u1", Purpose: string(entity.PurposeVerifyEmail)}
	err := svc.HandleJob(context.Background(), job)
	require.Error(t, err)
	require.Empty(t, sender.sent)
}

func TestHandleJobSendFailurePropagates(t *testing.T) {
	users := newFakeUserRepo(&entity.User{ID: "u1", Email: "user@example.com"})
	sender := &fakeSender{err: errors.New("mailgun down")}
	svc := newTestDeliveryService(users, &fakeTokenRepo{}, sender)

	job := mailer.DeliveryJob{UserID: "u1", Purpose: string(entity.PurposeResetPassword)}
	// The error reaches the worker, which nacks the message for redelivery.
	require.Error(t, svc.HandleJob(context.Background(), job))
}

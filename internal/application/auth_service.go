package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/launchbase/launchbase/config"
	"github.com/launchbase/launchbase/internal/domain/entity"
	"github.com/launchbase/launchbase/internal/domain/repository"
	"github.com/launchbase/launchbase/pkg/helpers"
	"github.com/launchbase/launchbase/pkg/mailer"
)

// AuthService owns the account lifecycle: registration, credentials,
// verification and password reset. Email delivery is decoupled through the
// Dispatcher; this service never touches tokens at issuance time, only at
// consumption.
type AuthService struct {
	Users      repository.UserRepository
	Tokens     repository.TokenRepository
	Dispatcher Dispatcher
	Redis      *redis.Client
	JWT        *helpers.JWTManager
	Cfg        *config.Config
	Log        *logrus.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	dispatcher Dispatcher,
	rdb *redis.Client,
	jwtMgr *helpers.JWTManager,
	cfg *config.Config,
	log *logrus.Logger,
) *AuthService {
	return &AuthService{
		Users:      users,
		Tokens:     tokens,
		Dispatcher: dispatcher,
		Redis:      rdb,
		JWT:        jwtMgr,
		Cfg:        cfg,
		Log:        log,
	}
}

// RequestMeta carries per-request client details into dispatched email jobs.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// TokenPair is an access/refresh token pair bound to a server-side session.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	SessionID        string
}

func sessionKey(userID string) string { return "user:session:" + userID }

// Register creates an unverified account and queues the verification email.
// A dispatch failure does not roll back the account; the user can ask for a
// resend.
func (s *AuthService) Register(ctx context.Context, email, password string, meta RequestMeta) (*entity.User, error) {
	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &entity.User{
		Email:    email,
		Password: hash,
	}
	if err := s.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.dispatch(ctx, user.ID, entity.PurposeVerifyEmail, meta)
	return user, nil
}

// Authenticate checks the email/password pair. Accounts created through a
// social provider have no password and can never pass here.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	user, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.Password == "" {
		return nil, ErrInvalidCredentials
	}
	if !helpers.CompareHashAndPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// IssueTokens creates a fresh server-side session in Redis and returns the
// matching JWT pair. Logging in again replaces the previous session, so a
// user holds at most one live session.
func (s *AuthService) IssueTokens(ctx context.Context, user *entity.User) (*TokenPair, error) {
	sid := uuid.NewString()
	access, accessExp, err := s.JWT.GenerateAccessToken(user.ID, sid)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.JWT.GenerateRefreshToken(user.ID, sid)
	if err != nil {
		return nil, err
	}

	key := sessionKey(user.ID)
	pipe := s.Redis.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"sid":        sid,
		"email":      user.Email,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	})
	pipe.Expire(ctx, key, s.JWT.RefreshTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		SessionID:        sid,
	}, nil
}

// Refresh validates a refresh token against the live session and rotates the
// pair. A session that was logged out (or superseded) rejects the refresh.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*entity.User, *TokenPair, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	sid, err := s.Redis.HGet(ctx, sessionKey(claims.UserID), "sid").Result()
	if err != nil || sid != claims.SessionID {
		return nil, nil, ErrInvalidCredentials
	}
	user, err := s.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	pair, err := s.IssueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Logout drops the server-side session. Cookies are cleared by the handler.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	return s.Redis.Del(ctx, sessionKey(userID)).Err()
}

// GetProfile returns the user for an authenticated request.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ChangePassword verifies the current password before storing the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if user.Password == "" {
		return ErrInvalidCredentials
	}
	if !helpers.CompareHashAndPassword(user.Password, current) {
		return ErrInvalidCredentials
	}
	hash, err := helpers.HashPassword(next)
	if err != nil {
		return err
	}
	return s.Users.UpdatePassword(ctx, userID, hash)
}

// ForgotPassword queues a reset email when the address belongs to an
// account. It reports success either way so the endpoint cannot be used to
// probe which emails are registered.
func (s *AuthService) ForgotPassword(ctx context.Context, email string, meta RequestMeta) error {
	user, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.Log.WithError(err).Warn("forgot-password lookup failed")
		}
		return nil
	}
	s.dispatch(ctx, user.ID, entity.PurposeResetPassword, meta)
	return nil
}

// ResetPassword consumes a reset token and installs the new password in the
// same transaction. Any token problem surfaces as ErrInvalidToken.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	hash, err := helpers.HashPassword(password)
	if err != nil {
		return err
	}
	userID, err := s.Tokens.ConsumeForPasswordReset(ctx, token, hash)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidToken) {
			return ErrInvalidToken
		}
		return err
	}
	// A reset proves control of the mailbox, so any live session for the
	// account is revoked.
	if err := s.Redis.Del(ctx, sessionKey(userID)).Err(); err != nil {
		s.Log.WithError(err).WithField("user_id", userID).Warn("failed to revoke session after password reset")
	}
	return nil
}

// VerifyEmail consumes a verification token and flips the account to
// verified. Consuming is first-wins; a second submit of the same token gets
// ErrInvalidToken.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (string, error) {
	userID, err := s.Tokens.ConsumeForVerification(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidToken) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	return userID, nil
}

// ResendVerification queues a fresh verification email. For an account that
// is already verified nothing is sent; the returned flag tells the caller
// which of the two happened.
func (s *AuthService) ResendVerification(ctx context.Context, userID string, meta RequestMeta) (alreadyVerified bool, err error) {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrUserNotFound
		}
		return false, err
	}
	if user.EmailVerified {
		return true, nil
	}
	s.dispatch(ctx, user.ID, entity.PurposeVerifyEmail, meta)
	return false, nil
}

// LoginWithGoogle creates or links an account for a Google-authenticated
// email. The provider has already verified the address, so the account is
// marked verified immediately and no verification email is queued.
func (s *AuthService) LoginWithGoogle(ctx context.Context, email string) (*entity.User, error) {
	user, err := s.Users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if !user.EmailVerified {
			if err := s.Users.MarkVerified(ctx, user.ID); err != nil {
				return nil, err
			}
			user.EmailVerified = true
		}
		return user, nil
	case errors.Is(err, repository.ErrNotFound):
		user = &entity.User{Email: email}
		if err := s.Users.Create(ctx, user); err != nil {
			return nil, err
		}
		if err := s.Users.MarkVerified(ctx, user.ID); err != nil {
			return nil, err
		}
		user.EmailVerified = true
		return user, nil
	default:
		return nil, err
	}
}

func (s *AuthService) dispatch(ctx context.Context, userID string, purpose entity.TokenPurpose, meta RequestMeta) {
	if !s.Cfg.MailSendEnabled {
		s.Log.WithFields(logrus.Fields{"user_id": userID, "purpose": purpose}).Info("mail sending disabled, skipping dispatch")
		return
	}
	job := mailer.DeliveryJob{
		UserID:    userID,
		Purpose:   string(purpose),
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	}
	if err := s.Dispatcher.Dispatch(ctx, job); err != nil {
		s.Log.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"purpose": purpose,
		}).Error("failed to enqueue delivery job")
	}
}

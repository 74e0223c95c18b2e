package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/launchbase/launchbase/config"
	"github.com/launchbase/launchbase/internal/application"
	"github.com/launchbase/launchbase/internal/domain/entity"
	"github.com/launchbase/launchbase/internal/interface/middleware"
	"github.com/launchbase/launchbase/pkg/helpers"
	"github.com/launchbase/launchbase/pkg/response"
	"github.com/launchbase/launchbase/pkg/validation"
)

const (
	oauthStateTTL    = 10 * time.Minute
	oauthStatePrefix = "oauth:state:"
	googleUserInfo   = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// AuthService is the slice of the application layer the auth endpoints need.
type AuthService interface {
	Register(ctx context.Context, email, password string, meta application.RequestMeta) (*entity.User, error)
	ForgotPassword(ctx context.Context, email string, meta application.RequestMeta) error
	ResetPassword(ctx context.Context, token, password string) error
	VerifyEmail(ctx context.Context, token string) (string, error)
	ResendVerification(ctx context.Context, userID string, meta application.RequestMeta) (bool, error)
	LoginWithGoogle(ctx context.Context, email string) (*entity.User, error)
	IssueTokens(ctx context.Context, user *entity.User) (*application.TokenPair, error)
}

type AuthHandler struct {
	Svc     AuthService
	Cfg     *config.Config
	Logger  *logrus.Logger
	Cookies *helpers.CookieManager
	Redis   *redis.Client
	OAuth   *oauth2.Config
}

func NewAuthHandler(svc AuthService, cfg *config.Config, logger *logrus.Logger, rdb *redis.Client, oauth *oauth2.Config) *AuthHandler {
	return &AuthHandler{
		Svc:     svc,
		Cfg:     cfg,
		Logger:  logger,
		Cookies: helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure),
		Redis:   rdb,
		OAuth:   oauth,
	}
}

type registerRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,pwd"`
	PasswordConfirm string `json:"password_confirm" binding:"required,eqfield=Password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Token           string `json:"token" binding:"required"`
	Password        string `json:"password" binding:"required,pwd"`
	PasswordConfirm string `json:"password_confirm" binding:"required,eqfield=Password"`
}

func requestMeta(c *gin.Context) application.RequestMeta {
	return application.RequestMeta{
		IP:        c.GetString("real_ip"),
		UserAgent: c.Request.UserAgent(),
	}
}

func (h *AuthHandler) userPayload(u *entity.User) gin.H {
	return gin.H{
		"id":                  u.ID,
		"email":               u.Email,
		"email_verified":      u.EmailVerified,
		"email_verified_at":   u.EmailVerifiedAt,
		"days_until_deletion": u.DaysUntilDeletion(h.Cfg.UnverifiedGrace, time.Now().UTC()),
		"created_at":          u.CreatedAt,
		"updated_at":          u.UpdatedAt,
	}
}

// Register creates an unverified account and queues the verification email.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	user, err := h.Svc.Register(c.Request.Context(), req.Email, req.Password, requestMeta(c))
	if err != nil {
		if err == application.ErrEmailTaken {
			response.Error(c, http.StatusConflict, err.Error(), nil)
			return
		}
		h.Logger.WithError(err).Error("register failed")
		response.Error(c, http.StatusInternalServerError, "registration failed", nil)
		return
	}
	response.Success(c, http.StatusCreated, h.userPayload(user), "account created, check your email to verify", nil)
}

// ForgotPassword always reports success so the endpoint cannot be used to
// probe which addresses have accounts.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.ForgotPassword(c.Request.Context(), req.Email, requestMeta(c)); err != nil {
		h.Logger.WithError(err).Error("forgot-password failed")
	}
	response.Success[any](c, http.StatusOK, nil, "if an account exists for that email, a reset link has been sent", nil)
}

// ResetPassword consumes a reset token and installs the new password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		if err == application.ErrInvalidToken {
			response.Error(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		h.Logger.WithError(err).Error("reset-password failed")
		response.Error(c, http.StatusInternalServerError, "password reset failed", nil)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "password has been reset", nil)
}

// VerifyEmail consumes a verification token from the URL path.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		response.Error(c, http.StatusBadRequest, application.ErrInvalidToken.Error(), nil)
		return
	}
	userID, err := h.Svc.VerifyEmail(c.Request.Context(), token)
	if err != nil {
		if err == application.ErrInvalidToken {
			response.Error(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		h.Logger.WithError(err).Error("verify-email failed")
		response.Error(c, http.StatusInternalServerError, "verification failed", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user_id": userID, "email_verified": true}, "email verified", nil)
}

// ResendVerification queues a fresh verification email for the logged-in
// user. A verified account still gets a 200, but the response says so and
// nothing is sent.
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	alreadyVerified, err := h.Svc.ResendVerification(c.Request.Context(), uid, requestMeta(c))
	if err != nil {
		if err == application.ErrUserNotFound {
			response.Error(c, http.StatusNotFound, "user not found", nil)
			return
		}
		h.Logger.WithError(err).Error("resend-verification failed")
		response.Error(c, http.StatusInternalServerError, "resend failed", nil)
		return
	}
	if alreadyVerified {
		response.Success(c, http.StatusOK, gin.H{"already_verified": true}, "email is already verified", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"already_verified": false}, "verification email sent", nil)
}

// GoogleLogin stores a one-time state in Redis and redirects to Google.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	state := uuid.NewString()
	if err := h.Redis.Set(c.Request.Context(), oauthStatePrefix+state, "1", oauthStateTTL).Err(); err != nil {
		h.Logger.WithError(err).Error("failed to store oauth state")
		response.Error(c, http.StatusInternalServerError, "oauth unavailable", nil)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, h.OAuth.AuthCodeURL(state))
}

type googleUser struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
}

// GoogleCallback completes the OAuth flow: validates state, exchanges the
// code, reads the Google profile and logs the matching account in. Accounts
// reached through Google are treated as email-verified.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	ctx := c.Request.Context()
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		h.redirectLoginError(c, "missing state or code")
		return
	}
	deleted, err := h.Redis.Del(ctx, oauthStatePrefix+state).Result()
	if err != nil || deleted == 0 {
		h.redirectLoginError(c, "unknown oauth state")
		return
	}

	tok, err := h.OAuth.Exchange(ctx, code)
	if err != nil {
		h.redirectLoginError(c, "code exchange failed")
		return
	}

	resp, err := h.OAuth.Client(ctx, tok).Get(googleUserInfo)
	if err != nil {
		h.redirectLoginError(c, "userinfo fetch failed")
		return
	}
	defer resp.Body.Close()
	var gu googleUser
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil || gu.Email == "" {
		h.redirectLoginError(c, "userinfo decode failed")
		return
	}
	if !gu.VerifiedEmail {
		h.redirectLoginError(c, "google email not verified")
		return
	}

	user, err := h.Svc.LoginWithGoogle(ctx, gu.Email)
	if err != nil {
		h.Logger.WithError(err).Error("google login failed")
		h.redirectLoginError(c, "login failed")
		return
	}
	pair, err := h.Svc.IssueTokens(ctx, user)
	if err != nil {
		h.Logger.WithError(err).Error("failed to issue tokens after google login")
		h.redirectLoginError(c, "login failed")
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessExpiresAt, pair.RefreshToken, pair.RefreshExpiresAt)
	c.Redirect(http.StatusTemporaryRedirect, h.Cfg.DashboardURL)
}

func (h *AuthHandler) redirectLoginError(c *gin.Context, reason string) {
	h.Logger.WithField("reason", reason).Warn("google oauth rejected")
	c.Redirect(http.StatusTemporaryRedirect, h.Cfg.LoginURL+"?error=oauth")
}

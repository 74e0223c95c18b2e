package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/launchbase/launchbase/config"
	"github.com/launchbase/launchbase/internal/application"
	"github.com/launchbase/launchbase/internal/domain/entity"
	"github.com/launchbase/launchbase/internal/interface/middleware"
	"github.com/launchbase/launchbase/pkg/helpers"
	"github.com/launchbase/launchbase/pkg/response"
	"github.com/launchbase/launchbase/pkg/validation"
)

// SessionService is the slice of the application layer the session
// endpoints need.
type SessionService interface {
	Authenticate(ctx context.Context, email, password string) (*entity.User, error)
	IssueTokens(ctx context.Context, user *entity.User) (*application.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*entity.User, *application.TokenPair, error)
	Logout(ctx context.Context, userID string) error
	GetProfile(ctx context.Context, userID string) (*entity.User, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
}

type UserHandler struct {
	Svc     SessionService
	Cfg     *config.Config
	Logger  *logrus.Logger
	Cookies *helpers.CookieManager
}

func NewUserHandler(svc SessionService, cfg *config.Config, logger *logrus.Logger) *UserHandler {
	return &UserHandler{
		Svc:     svc,
		Cfg:     cfg,
		Logger:  logger,
		Cookies: helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure),
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,pwd"`
	PasswordConfirm string `json:"password_confirm" binding:"required,eqfield=NewPassword"`
}

func (h *UserHandler) profilePayload(u *entity.User) gin.H {
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

func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	ctx := c.Request.Context()
	user, err := h.Svc.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}
	pair, err := h.Svc.IssueTokens(ctx, user)
	if err != nil {
		h.Logger.WithError(err).Error("failed to issue tokens")
		response.Error(c, http.StatusInternalServerError, "login failed", nil)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessExpiresAt, pair.RefreshToken, pair.RefreshExpiresAt)
	response.Success(c, http.StatusOK, h.profilePayload(user), "login successful", gin.H{
		"access_expires_at":  pair.AccessExpiresAt,
		"refresh_expires_at": pair.RefreshExpiresAt,
	})
}

func (h *UserHandler) Refresh(c *gin.Context) {
	refresh, err := c.Cookie("refresh_token")
	if err != nil || refresh == "" {
		response.Error(c, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}
	_, pair, err := h.Svc.Refresh(c.Request.Context(), refresh)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "invalid refresh token", nil)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessExpiresAt, pair.RefreshToken, pair.RefreshExpiresAt)
	response.Success[any](c, http.StatusOK, gin.H{"refreshed": true}, "token refreshed", gin.H{
		"access_expires_at":  pair.AccessExpiresAt,
		"refresh_expires_at": pair.RefreshExpiresAt,
	})
}

func (h *UserHandler) Logout(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	if err := h.Svc.Logout(c.Request.Context(), uid); err != nil {
		h.Logger.WithError(err).Warn("failed to drop session on logout")
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, gin.H{"logged_out": true}, "logged out", nil)
}

func (h *UserHandler) Me(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	user, err := h.Svc.GetProfile(c.Request.Context(), uid)
	if err != nil {
		response.Error(c, http.StatusNotFound, "user not found", nil)
		return
	}
	response.Success(c, http.StatusOK, h.profilePayload(user), "profile", nil)
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	uid := c.GetString(middleware.CtxUserIDKey)
	if err := h.Svc.ChangePassword(c.Request.Context(), uid, req.CurrentPassword, req.NewPassword); err != nil {
		if err == application.ErrInvalidCredentials {
			response.Error(c, http.StatusUnauthorized, "current password is incorrect", nil)
			return
		}
		h.Logger.WithError(err).Error("change-password failed")
		response.Error(c, http.StatusInternalServerError, "password change failed", nil)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "password changed", nil)
}

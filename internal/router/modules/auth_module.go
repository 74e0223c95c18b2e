package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/launchbase/launchbase/internal/container"
	handlers "github.com/launchbase/launchbase/internal/interface/http"
	"github.com/launchbase/launchbase/internal/interface/middleware"
	"github.com/launchbase/launchbase/pkg/helpers"
)

type AuthModule struct {
	Handler *handlers.AuthHandler
	JWT     *helpers.JWTManager
}

func NewAuthModule(h *handlers.AuthHandler, jwt *helpers.JWTManager) *AuthModule {
	return &AuthModule{Handler: h, JWT: jwt}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	// Public endpoints with IP-based rate limits
	registerLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	forgotLimiter := middleware.RateLimit(container.GetRedis(), 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	resetLimiter := middleware.RateLimit(container.GetRedis(), 30, time.Minute, middleware.KeyByIPAndPath(), nil)
	verifyLimiter := middleware.RateLimit(container.GetRedis(), 30, time.Minute, middleware.KeyByIPAndPath(), nil)
	oauthLimiter := middleware.RateLimit(container.GetRedis(), 30, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.POST("/register", registerLimiter, m.Handler.Register)
	rg.POST("/forgot-password", forgotLimiter, m.Handler.ForgotPassword)
	rg.POST("/reset-password", resetLimiter, m.Handler.ResetPassword)
	rg.GET("/verify-email/:token", verifyLimiter, m.Handler.VerifyEmail)

	rg.GET("/auth/google/login", oauthLimiter, m.Handler.GoogleLogin)
	rg.GET("/auth/google/callback", oauthLimiter, m.Handler.GoogleCallback)

	// Protected resend with user-based rate limit
	auth := rg.Group("/")
	auth.Use(middleware.Auth(container.GetRedis(), m.JWT))
	auth.Use(middleware.RateLimit(container.GetRedis(), 5, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.POST("/resend-verification", m.Handler.ResendVerification)
	}
}

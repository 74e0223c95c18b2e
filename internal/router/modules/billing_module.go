package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/launchbase/launchbase/internal/container"
	handlers "github.com/launchbase/launchbase/internal/interface/http"
	"github.com/launchbase/launchbase/internal/interface/middleware"
	"github.com/launchbase/launchbase/pkg/helpers"
)

type BillingModule struct {
	Handler *handlers.BillingHandler
	JWT     *helpers.JWTManager
}

func NewBillingModule(h *handlers.BillingHandler, jwt *helpers.JWTManager) *BillingModule {
	return &BillingModule{Handler: h, JWT: jwt}
}

func (m *BillingModule) Register(rg *gin.RouterGroup) {
	// Stripe calls the webhook; it authenticates via signature, not session
	webhookLimiter := middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByIP(), nil)
	rg.POST("/billing/webhook", webhookLimiter, m.Handler.Webhook)

	auth := rg.Group("/billing")
	auth.Use(middleware.Auth(container.GetRedis(), m.JWT))
	auth.Use(middleware.RateLimit(container.GetRedis(), 30, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.POST("/checkout", m.Handler.CreateCheckout)
		auth.POST("/portal", m.Handler.CreatePortal)
		auth.GET("/subscription", m.Handler.GetSubscription)
	}
}

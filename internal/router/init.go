package router

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/launchbase/launchbase/internal/application"
	"github.com/launchbase/launchbase/internal/container"
	pginfra "github.com/launchbase/launchbase/internal/infrastructure/postgres"
	handlers "github.com/launchbase/launchbase/internal/interface/http"
	"github.com/launchbase/launchbase/internal/router/modules"
)

// InitModules wires repositories, services and handlers from the container
// singletons and registers every feature module. Called once at startup.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	pool := container.GetPGPool()

	users := pginfra.NewUserRepository(pool)
	tokens := pginfra.NewTokenRepository(pool)
	subs := pginfra.NewSubscriptionRepository(pool)

	dispatcher := application.NewQueueDispatcher(container.GetRabbitPub())

	authSvc := application.NewAuthService(
		users,
		tokens,
		dispatcher,
		container.GetRedis(),
		container.GetJWT(),
		cfg,
		container.GetLogger(),
	)
	billingSvc := application.NewBillingService(users, subs, cfg, container.GetLogger())

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes:       []string{"openid", "email"},
		Endpoint:     google.Endpoint,
	}

	authHandler := handlers.NewAuthHandler(authSvc, cfg, container.GetLogger(), container.GetRedis(), oauthCfg)
	userHandler := handlers.NewUserHandler(authSvc, cfg, container.GetLogger())
	billingHandler := handlers.NewBillingHandler(billingSvc, container.GetLogger())

	r.Add(modules.NewAuthModule(authHandler, container.GetJWT()))
	r.Add(modules.NewUserModule(userHandler, container.GetJWT()))
	r.Add(modules.NewBillingModule(billingHandler, container.GetJWT()))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}

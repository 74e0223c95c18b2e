package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/launchbase/launchbase/internal/application"
	"github.com/launchbase/launchbase/internal/domain/entity"
	"github.com/launchbase/launchbase/internal/interface/middleware"
	"github.com/launchbase/launchbase/pkg/response"
)

const maxWebhookBody = 64 * 1024

// Billing is the slice of the application layer the billing endpoints need.
type Billing interface {
	CreateCheckoutSession(ctx context.Context, userID string) (string, error)
	CreatePortalSession(ctx context.Context, userID string) (string, error)
	GetSubscription(ctx context.Context, userID string) (*entity.Subscription, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type BillingHandler struct {
	Svc    Billing
	Logger *logrus.Logger
}

func NewBillingHandler(svc Billing, logger *logrus.Logger) *BillingHandler {
	return &BillingHandler{Svc: svc, Logger: logger}
}

// CreateCheckout returns a hosted checkout URL for the logged-in user.
func (h *BillingHandler) CreateCheckout(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	url, err := h.Svc.CreateCheckoutSession(c.Request.Context(), uid)
	if err != nil {
		h.Logger.WithError(err).Error("checkout session failed")
		response.Error(c, http.StatusBadGateway, "could not start checkout", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"url": url}, "checkout session created", nil)
}

// CreatePortal returns a billing portal URL for an existing customer.
func (h *BillingHandler) CreatePortal(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	url, err := h.Svc.CreatePortalSession(c.Request.Context(), uid)
	if err != nil {
		if err == application.ErrNoSubscription {
			response.Error(c, http.StatusNotFound, "no billing account", nil)
			return
		}
		h.Logger.WithError(err).Error("portal session failed")
		response.Error(c, http.StatusBadGateway, "could not open billing portal", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"url": url}, "portal session created", nil)
}

// GetSubscription reports the cached subscription state for the user.
func (h *BillingHandler) GetSubscription(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	sub, err := h.Svc.GetSubscription(c.Request.Context(), uid)
	if err != nil {
		if err == application.ErrNoSubscription {
			response.Success(c, http.StatusOK, gin.H{"status": "none"}, "no subscription", nil)
			return
		}
		h.Logger.WithError(err).Error("subscription lookup failed")
		response.Error(c, http.StatusInternalServerError, "subscription lookup failed", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"status":               sub.Status,
		"active":               sub.Active(),
		"trialing":             sub.Trialing(),
		"price_id":             sub.StripePriceID,
		"current_period_end":   sub.CurrentPeriodEnd,
		"cancel_at_period_end": sub.CancelAtPeriodEnd,
	}, "subscription", nil)
}

// Webhook receives Stripe events. The raw body is needed for signature
// verification, so this endpoint bypasses the JSON binding used elsewhere.
func (h *BillingHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "unreadable payload", nil)
		return
	}
	sig := c.GetHeader("Stripe-Signature")
	if err := h.Svc.HandleWebhook(c.Request.Context(), payload, sig); err != nil {
		h.Logger.WithError(err).Warn("webhook rejected")
		response.Error(c, http.StatusBadRequest, "webhook rejected", nil)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "ok", nil)
}

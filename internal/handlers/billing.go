package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"integen/api/internal/middleware"
	"integen/api/internal/service"
)

type checkoutRequest struct {
	Plan  string `json:"plan"`
	Email string `json:"email"`
}

func (h HandlerSet) CreateCheckoutSession(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	email := req.Email
	if email == "" {
		email = c.GetString(middleware.CtxUserEmail)
	}

	result, err := h.billing.CreateCheckoutSession(c.Request.Context(), req.Plan, email)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"url": result.URL, "id": result.ID})
	case errors.Is(err, service.ErrUnknownPlan):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown plan"})
	case errors.Is(err, service.ErrBillingNotConfigured):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Billing not configured on server."})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stripe_error", "details": err.Error()})
	}
}

func (h HandlerSet) Webhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	err = h.webhook.HandleEvent(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"received": true})
	case errors.Is(err, service.ErrWebhookNotConfigured):
		c.JSON(http.StatusBadRequest, gin.H{"error": "webhook not configured"})
	case errors.Is(err, service.ErrBadSignature):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
	default:
		h.log.Error().Err(err).Msg("webhook processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

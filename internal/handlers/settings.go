package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"integen/api/internal/models"
)

func (h HandlerSet) GetSettings(c *gin.Context) {
	settings, err := h.store.GetSettings(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("read settings failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettings merges the request body into the stored settings, the
// same shallow merge the site has always done.
func (h HandlerSet) UpdateSettings(c *gin.Context) {
	var values models.Settings
	if err := c.ShouldBindJSON(&values); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	merged, err := h.store.PutSettings(c.Request.Context(), values)
	if err != nil {
		h.log.Error().Err(err).Msg("write settings failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "settings": merged})
}

// Providers reports which upstream integrations are configured so the
// frontend can populate its provider selector.
func (h HandlerSet) Providers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"completion": h.cfg.OpenAI.APIKey != "",
		"billing":    h.cfg.Stripe.SecretKey != "",
	})
}

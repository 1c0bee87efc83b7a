package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"integen/api/internal/service"
)

type chatRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
}

func (h HandlerSet) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt required"})
		return
	}

	reply, err := h.chat.Relay(c.Request.Context(), req.Prompt, req.Model)
	switch {
	case err == nil:
		ai := gin.H{"text": reply.Text}
		if reply.Model != "" {
			ai["model"] = reply.Model
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "ai": ai})
	case errors.Is(err, service.ErrEmptyPrompt):
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt required"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "openai_error", "details": err.Error()})
	}
}

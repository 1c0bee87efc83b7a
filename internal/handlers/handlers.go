package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"integen/api/internal/config"
	"integen/api/internal/middleware"
	"integen/api/internal/service"
	"integen/api/internal/store"
)

type HandlerSet struct {
	log     zerolog.Logger
	cfg     *config.AppConfig
	store   store.Store
	cache   *redis.Client
	auth    *service.AuthService
	billing *service.BillingService
	webhook *service.WebhookService
	chat    *service.ChatService
}

func NewHandlerSet(
	log zerolog.Logger,
	cfg *config.AppConfig,
	st store.Store,
	cache *redis.Client,
	auth *service.AuthService,
	billing *service.BillingService,
	webhook *service.WebhookService,
	chat *service.ChatService,
) HandlerSet {
	return HandlerSet{
		log:     log,
		cfg:     cfg,
		store:   st,
		cache:   cache,
		auth:    auth,
		billing: billing,
		webhook: webhook,
		chat:    chat,
	}
}

func (h HandlerSet) Register(engine *gin.Engine) {
	api := engine.Group("/api")
	{
		api.GET("/health", h.Health)

		api.POST("/register", h.RegisterUser)
		api.POST("/login", h.Login)

		api.POST("/chat",
			middleware.OptionalAuth(h.cfg),
			middleware.RateLimit(h.cache, h.cfg.Limits.ChatPerMinute, h.log),
			h.Chat,
		)

		api.POST("/checkout",
			middleware.OptionalAuth(h.cfg),
			h.CreateCheckoutSession,
		)

		api.GET("/settings", h.GetSettings)
		api.POST("/settings", h.UpdateSettings)
		api.GET("/providers", h.Providers)
	}

	// Webhook lives outside /api: the billing provider signs the exact
	// request bytes, so the route stays free of any body-touching
	// middleware.
	engine.POST("/webhook", h.Webhook)
}

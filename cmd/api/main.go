package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"integen/api/internal/cache"
	"integen/api/internal/config"
	"integen/api/internal/handlers"
	"integen/api/internal/jobs"
	"integen/api/internal/llm"
	"integen/api/internal/log"
	"integen/api/internal/server"
	"integen/api/internal/service"
	"integen/api/internal/store"
)

func main() {
	// .env is a local development convenience; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	st, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	var completer service.Completer
	if cfg.OpenAI.APIKey != "" {
		completer = llm.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.MaxTokens)
	} else {
		logger.Warn().Msg("no completion API key configured, chat runs in placeholder mode")
	}

	authService := service.NewAuthService(st, cfg, logger)
	billingService := service.NewBillingService(cfg, logger)
	webhookService := service.NewWebhookService(st, cfg.Stripe.WebhookSecret, logger)
	chatService := service.NewChatService(st, completer, logger)

	handlerSet := handlers.NewHandlerSet(logger, cfg, st, redisClient,
		authService, billingService, webhookService, chatService)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(st, cfg.Events.Retention, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, st, redisClient)
}

func openStore(cfg *config.AppConfig, logger zerolog.Logger) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.OpenSQLite(cfg.Store.Path)
	default:
		return store.OpenFile(cfg.Store.Path, logger)
	}
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, st store.Store, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop()

	if err := st.Close(); err != nil {
		logger.Error().Err(err).Msg("store close error")
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/gilmarTelles/xlsx-to-pdf/internal/config"
	"github.com/gilmarTelles/xlsx-to-pdf/internal/http/server"
	"github.com/gilmarTelles/xlsx-to-pdf/internal/infra/logging"
	"github.com/gilmarTelles/xlsx-to-pdf/internal/infra/tokens"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	logging.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)

	idleConnsClosed := make(chan struct{})

	var tokenStore *tokens.Store
	if cfg.Auth.Postgres.Host != "" {
		tokenStore = tokens.NewStore()
		if err := tokenStore.LoadFromPostgres(cfg.Auth.Postgres); err != nil {
			logging.Error("Failed to load API tokens", "error", err)
		}
		go tokenStore.RefreshPeriodically(cfg.Auth.Postgres, cfg.Auth.ReloadInterval, idleConnsClosed)
		defer tokenStore.Close()
	}

	var rdb *redis.Client
	if cfg.Cache.Enabled && cfg.Cache.RedisHost != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisHost,
			DB:   cfg.Cache.RedisDB,
		})
	}

	app := server.New(server.Deps{
		Config: cfg,
		Tokens: tokenStore,
		Redis:  rdb,
	})

	startServer(app, cfg, idleConnsClosed)
	<-idleConnsClosed
}

// startServer starts the Fiber app and listens for shutdown signals
func startServer(app *fiber.App, cfg config.Config, idleConnsClosed chan struct{}) {
	go func() {
		if err := app.Listen(cfg.Server.Host + cfg.Server.Port); err != nil {
			logging.Error("Server error", "error", err)
		}
	}()

	// Listen for OS termination signals
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	<-sigint

	logging.Warn("Shutdown signal received, closing server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
	}

	close(idleConnsClosed)
	logging.Info("Server stopped cleanly")
}

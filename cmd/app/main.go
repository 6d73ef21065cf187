package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram_miniapp/internal/bot"
	"telegram_miniapp/internal/config"
	"telegram_miniapp/internal/db"
	httpServer "telegram_miniapp/internal/http"
	"telegram_miniapp/internal/http/middleware"
	"telegram_miniapp/internal/logger"

	"github.com/gin-gonic/gin"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.SessionSecret == "" {
		logger.Warn("SESSION_SECRET is not set; session tokens are unsigned and must not be trusted for authorization")
	}

	ctx := context.Background()
	var deps httpServer.Deps

	if cfg.DatabaseURL != "" {
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to database", "error", err)
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal("failed to apply migrations", "error", err)
		}
		deps.DB = pool
	} else {
		logger.Warn("DATABASE_URL is not set; user profiles are not stored")
	}

	if cfg.RedisAddr != "" {
		deps.Redis = middleware.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if deps.Redis != nil {
			defer deps.Redis.Close()
		}
	}

	if cfg.BotUsername == "" && cfg.ResolveBot && cfg.BotToken != "" {
		name, err := bot.ResolveUsername(cfg.BotToken)
		if err != nil {
			logger.Warn("could not resolve bot username", "error", err)
		} else {
			cfg.BotUsername = name
		}
	}

	var launcher *bot.LauncherBot
	if cfg.RunBot && cfg.BotToken != "" {
		b, err := bot.NewLauncherBot(cfg.BotToken, cfg.WebAppURL)
		if err != nil {
			logger.Error("failed to start launcher bot", "error", err)
		} else {
			launcher = b
			go launcher.Start()
		}
	}

	r := httpServer.NewRouter(cfg, deps, version)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "env", cfg.AppEnv, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	if launcher != nil {
		launcher.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

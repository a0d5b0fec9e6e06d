package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/joshua-takyi/evently/internal/config"
	"github.com/joshua-takyi/evently/internal/connect"
	"github.com/joshua-takyi/evently/internal/container"
	"github.com/joshua-takyi/evently/internal/helpers"
	"github.com/joshua-takyi/evently/internal/models"
	"github.com/joshua-takyi/evently/internal/routes"
	"github.com/joshua-takyi/evently/migrations"
)

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("Starting evently API server",
		"environment", cfg.Environment,
		"store", cfg.StoreBackend,
		"avatars", cfg.AvatarBackend,
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.DatabaseURL != "" {
		if err := migrations.Up(cfg.DatabaseURL, logger); err != nil {
			logger.Error("Failed to apply migrations", "error", err)
			os.Exit(1)
		}
	}

	clients, err := connect.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to connect", "error", err)
		os.Exit(1)
	}
	defer clients.Close(logger)

	validator, err := helpers.NewJWTValidator(ctx, cfg.SupabaseURL, cfg.SupabaseJWTSecret, logger)
	if err != nil {
		logger.Error("Failed to set up token validation", "error", err)
		os.Exit(1)
	}
	defer validator.Close()

	appContainer := container.NewContainer(logger, cfg, clients, validator)
	if mdb, ok := appContainer.SessionRepo.(*models.MongodbRepo); ok {
		if err := mdb.EnsureSessionIndexes(ctx); err != nil {
			logger.Warn("Failed to ensure session indexes", "error", err)
		}
	}
	appContainer.StartRecorder()

	router := routes.SetupRoutes(appContainer)

	// WriteTimeout stays unset: /auth/events holds its response open.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	// closing the broker ends open event streams so Shutdown can finish
	logger.Info("Closing session streams", "subscribers", appContainer.Broker.Subscribers())
	appContainer.Broker.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.SlogLevel(),
		})
	} else {
		level := cfg.SlogLevel()
		if os.Getenv("LOG_LEVEL") == "" {
			level = slog.LevelDebug
		}
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

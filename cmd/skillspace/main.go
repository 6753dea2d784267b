package main

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/skillspace/skillspace/config"
	"github.com/skillspace/skillspace/internal/handlers"
	"github.com/skillspace/skillspace/internal/logger"
	"github.com/skillspace/skillspace/internal/presence"
	"github.com/skillspace/skillspace/internal/relay"
	"github.com/skillspace/skillspace/internal/storage"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger.Init(cfg.Environment)

	ctx := context.Background()

	// Choose the storage backend
	var store storage.Storage
	switch cfg.Storage.Backend {
	case "postgres":
		pg, err := storage.NewPostgresStorage(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			logger.Fatalf("Failed to connect to Postgres: %v", err)
		}
		store = pg
		logger.Infof("Using Postgres storage backend")
	case "memory":
		store = storage.NewMemoryStorage()
		logger.Infof("Using in-memory storage backend (data is transient)")
	default:
		logger.Fatalf("Unknown storage backend %q", cfg.Storage.Backend)
	}
	defer store.Close()

	// Optional Redis presence mirror
	var tracker relay.Presence
	if cfg.Redis.Addr != "" {
		redisTracker, err := presence.NewRedisTracker(ctx, cfg.Redis, logger.Log)
		if err != nil {
			logger.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisTracker.Close()
		tracker = redisTracker
		logger.Infof("Redis presence mirror enabled")
	}

	hub := relay.NewHub(store, tracker, logger.Log)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.Router(store, hub, cfg.JWTSecret, cfg.AllowedOrigins)

	// Start server
	logger.Infof("Starting SkillSpace server on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}

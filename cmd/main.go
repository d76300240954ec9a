package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Durgaprasad40/mira-nearby/internal/analytics"
	"github.com/Durgaprasad40/mira-nearby/internal/api"
	"github.com/Durgaprasad40/mira-nearby/internal/config"
	"github.com/Durgaprasad40/mira-nearby/internal/crossedpaths"
	"github.com/Durgaprasad40/mira-nearby/internal/location"
	"github.com/Durgaprasad40/mira-nearby/internal/nearby"
	"github.com/Durgaprasad40/mira-nearby/internal/notify"
	"github.com/Durgaprasad40/mira-nearby/internal/privacy"
	"github.com/Durgaprasad40/mira-nearby/internal/ratelimit"
	"github.com/Durgaprasad40/mira-nearby/internal/session"
	"github.com/Durgaprasad40/mira-nearby/internal/storage"
	"github.com/Durgaprasad40/mira-nearby/internal/stream"
	"github.com/Durgaprasad40/mira-nearby/pkg/logger"
	"github.com/Durgaprasad40/mira-nearby/pkg/validator"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize logger
	appLogger := logger.NewLogger(os.Getenv("ENV"))
	appLogger.Info("Starting nearby server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		appLogger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize Redis
	redisClient, err := storage.NewRedisClient(cfg)
	if err != nil {
		appLogger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis", "address", cfg.RedisAddr())

	// Initialize Postgres
	pgClient, err := storage.NewPostgresClient(cfg.Postgres.URL)
	if err != nil {
		appLogger.Error("Failed to connect to Postgres", "error", err)
		os.Exit(1)
	}
	defer pgClient.Close()
	appLogger.Info("Connected to Postgres")

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize services
	sessionService := session.NewService(redisClient, cfg.Session.TTL)

	locationService := location.NewService(
		redisClient,
		cfg.CrossedPaths.PublishCooldown,
		cfg.Nearby.QueryRadiusMeters,
		cfg.Stream.GeohashPrecision,
	)

	fuzzEngine := privacy.NewFuzzEngine(
		cfg.Privacy.MinRadiusMeters,
		cfg.Privacy.MaxRadiusMeters,
		cfg.Privacy.HiddenMinRadiusMeters,
		cfg.Privacy.HiddenMaxRadiusMeters,
	)
	freshness := privacy.NewFreshnessClassifier(cfg.Freshness.SolidMaxAge, cfg.Freshness.FadedMaxAge)

	nearbyService := nearby.NewService(locationService, pgClient, fuzzEngine, freshness, cfg.Nearby, appLogger)

	notifyPublisher := notify.NewPublisher(redisClient)
	notifyWorker := notify.NewWorker(redisClient, cfg.Push, appLogger)

	detector := crossedpaths.NewDetector(
		locationService,
		crossedpaths.NewRedisCooldowns(redisClient),
		notifyPublisher,
		cfg.CrossedPaths,
		appLogger,
	)

	statsRecorder := analytics.NewRecorder(redisClient, pgClient, appLogger)

	rateLimiter := ratelimit.NewLimiter(redisClient, cfg.RateLimit)
	rateLimitMiddleware := ratelimit.NewMiddleware(rateLimiter)

	val := validator.NewValidator()

	// Live stream hub
	hub := stream.NewHub(ctx, redisClient, nearbyService, locationService, appLogger)
	go hub.Run()
	streamHandler := stream.NewHandler(hub, sessionService, appLogger)

	// API handler
	apiHandler := api.NewHandler(
		sessionService,
		locationService,
		nearbyService,
		detector,
		pgClient,
		statsRecorder,
		rateLimiter,
		val,
		appLogger,
	)

	// Start background services
	go notifyWorker.Run(ctx)
	go statsRecorder.Run(ctx, time.Minute)

	// Setup Gin router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add logging middleware
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		appLogger.Info("Request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", duration,
			"ip", c.ClientIP(),
		)
	})

	// Setup routes
	api.SetupRoutes(router, apiHandler, streamHandler, rateLimitMiddleware)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLogger.Info("Server starting", "address", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Cancel context to stop background services
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server stopped")
}

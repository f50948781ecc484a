package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/studyroom-service/internal/assistant"
	"github.com/SAP-F-2025/studyroom-service/internal/auth"
	"github.com/SAP-F-2025/studyroom-service/internal/cache"
	"github.com/SAP-F-2025/studyroom-service/internal/config"
	"github.com/SAP-F-2025/studyroom-service/internal/events"
	"github.com/SAP-F-2025/studyroom-service/internal/export"
	"github.com/SAP-F-2025/studyroom-service/internal/handlers"
	"github.com/SAP-F-2025/studyroom-service/internal/mailer"
	"github.com/SAP-F-2025/studyroom-service/internal/realtime"
	"github.com/SAP-F-2025/studyroom-service/internal/repositories"
	"github.com/SAP-F-2025/studyroom-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/studyroom-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/studyroom-service/internal/services"
	"github.com/SAP-F-2025/studyroom-service/internal/storage"
	"github.com/SAP-F-2025/studyroom-service/internal/utils"
	"github.com/SAP-F-2025/studyroom-service/internal/validator"
	"github.com/SAP-F-2025/studyroom-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(slogLogger)
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Redis holds the sessions, so it is required
	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}

	// Initialize repositories
	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}
	repo := repoManager.GetRepository()

	// Message queue for outbound mail
	pubSub, err := events.NewPubSub(cfg.Queue, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize message queue: %v", err)
	}

	worker, err := mailer.NewWorker(
		pubSub.Subscriber,
		pubSub.Logger,
		repo.EmailDelivery(),
		mailer.NewSender(cfg.Mail, slogLogger),
		mailer.NewWorkerConfig(cfg),
		slogLogger,
	)
	if err != nil {
		log.Fatalf("Failed to initialize mail worker: %v", err)
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go func() {
		if err := worker.Run(workerCtx); err != nil {
			logger.Error("Mail worker stopped", "error", err)
		}
	}()

	// Chat hub
	hub := realtime.NewHub(slogLogger)
	go hub.Run()

	avatars, err := storage.NewAvatarStorage(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to prepare upload directory: %v", err)
	}

	var identityProvider repositories.IdentityProvider
	if cfg.Casdoor.Enabled() {
		identityProvider = casdoor.NewIdentityCasdoor(cfg.Casdoor)
	}

	// Initialize validator
	validator := validator.New()

	// Initialize services
	serviceManager := services.NewServiceManager(services.Dependencies{
		DB:               db,
		Repo:             repo,
		Cache:            cache.NewCacheManager(redisClient),
		Logger:           slogLogger,
		Validator:        validator,
		Sessions:         auth.NewSessionStore(redisClient, cfg.SessionTTL),
		Hasher:           auth.NewPasswordHasher(),
		Tokens:           auth.NewResetTokenManager(cfg.SecretKey, cfg.ResetTokenTTL),
		Publisher:        events.NewWatermillEventPublisher(pubSub.Publisher, slogLogger),
		Hub:              hub,
		Avatars:          avatars,
		Transcripts:      export.NewTranscriptWriter(),
		Assistant:        assistant.New(cfg.Assistant, slogLogger),
		IdentityProvider: identityProvider,
	}, services.NewServiceManagerConfig(cfg))
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Initialize handlers
	handlerManager := handlers.NewHandlerManager(
		serviceManager,
		hub,
		realtime.NewOriginPolicy(cfg.AllowedOrigins, slogLogger),
		handlers.NewHandlerConfig(cfg),
		logger,
	)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = storage.MaxAvatarSize + 1<<20

	// Setup middleware
	handlers.SetupMiddleware(router, logger, cfg.AllowedOrigins)

	// Setup routes
	handlerManager.SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"queue", pubSub.Backend,
			"sso_enabled", identityProvider != nil,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Hijacked websocket connections are not covered by server.Shutdown
	if err := hub.Shutdown(5 * time.Second); err != nil {
		logger.Error("Failed to shutdown chat hub", "error", err)
	}

	// Shutdown services
	if err := serviceManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}

	// Stop consuming before the transport goes away
	stopWorker()
	if err := worker.Close(); err != nil {
		logger.Error("Failed to stop mail worker", "error", err)
	}
	if err := pubSub.Close(); err != nil {
		logger.Error("Failed to close message queue", "error", err)
	}

	// Close database and Redis connections
	if err := repoManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to close connections", "error", err)
	}

	logger.Info("Server exited")
}

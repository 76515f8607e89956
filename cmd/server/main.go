package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/caribe-transfers/service-transfer/internal/application"
	"github.com/caribe-transfers/service-transfer/internal/config"
	transferDomain "github.com/caribe-transfers/service-transfer/internal/domain/transfer"
	transferEvents "github.com/caribe-transfers/service-transfer/internal/events"
	"github.com/caribe-transfers/service-transfer/internal/handler"
	"github.com/caribe-transfers/service-transfer/internal/platform/auth"
	"github.com/caribe-transfers/service-transfer/internal/platform/database"
	"github.com/caribe-transfers/service-transfer/internal/platform/health"
	"github.com/caribe-transfers/service-transfer/internal/platform/kafka"
	"github.com/caribe-transfers/service-transfer/internal/platform/logger"
	"github.com/caribe-transfers/service-transfer/internal/platform/middleware"
	"github.com/caribe-transfers/service-transfer/internal/repository"
	"github.com/caribe-transfers/service-transfer/migrations"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, "service-transfer", logger.Options{FilePath: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-transfer",
		zap.String("port", cfg.Port),
	)

	// Connect to database
	dbConfig := database.PostgresConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.DBName,
		SSLMode:  cfg.DBConfig.SSLMode,
	}
	db, err := database.Connect(dbConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if err := migrations.Up(dbConfig.DatabaseURL(), log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, 15*time.Minute)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Initialize repositories
	zoneRepo := repository.NewGormZoneRepository(db)
	locationRepo := repository.NewGormLocationRepository(db)
	vehicleRepo := repository.NewGormVehicleRepository(db)
	routeRepo := repository.NewGormRouteRepository(db)

	// Route snapshots go through Redis when it is configured
	var (
		snapshots   transferDomain.RouteSnapshotReader = routeRepo
		invalidator transferDomain.CacheInvalidator
	)
	if cfg.RedisConfig.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Addr,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis unreachable; route cache will fall back to the database", zap.Error(err))
		}
		pingCancel()

		cached := repository.NewCachedRouteReader(routeRepo, rdb, cfg.RedisConfig.TTL, log)
		snapshots = cached
		invalidator = cached
		log.Info("route snapshot cache enabled", zap.String("addr", cfg.RedisConfig.Addr), zap.Duration("ttl", cfg.RedisConfig.TTL))
	}

	// Initialize application services
	quoteService := application.NewQuoteService(locationRepo, snapshots, kafkaProducer, log)
	catalogService := application.NewCatalogService(zoneRepo, locationRepo, vehicleRepo, routeRepo, invalidator, log)

	// Initialize and start quote event consumer in a goroutine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifiers := buildNotifiers(cfg.NotifyConfig, log)
	if len(notifiers) > 0 {
		groupID := cfg.KafkaConfig.GroupPrefix + "transfer-notifier"
		quoteConsumer := transferEvents.NewQuoteEventConsumer(
			cfg.KafkaConfig.Brokers,
			groupID,
			notifiers,
			log,
		)
		defer func() { _ = quoteConsumer.Close() }()

		go func() {
			log.Info("starting quote event consumer", zap.Int("notifiers", len(notifiers)))
			if err := quoteConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("quote event consumer error", zap.Error(err))
			}
		}()
	} else {
		log.Info("no notification channel configured; quote notifications disabled")
	}

	// Initialize HTTP handlers
	quoteHandler := handler.NewQuoteHandler(quoteService, catalogService)
	adminHandler := handler.NewAdminTransferHandler(catalogService, log)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, "service-transfer")
	healthHandler.RegisterRoutes(router)

	// Register routes
	quoteHandler.RegisterRoutes(&router.RouterGroup)
	adminHandler.RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-transfer...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-transfer stopped")
}

// buildNotifiers returns the operator channels that have settings. A Telegram
// bot that fails to authenticate is skipped rather than stopping the service.
func buildNotifiers(cfg config.NotifyConfig, log *zap.Logger) []transferEvents.QuoteNotifier {
	var notifiers []transferEvents.QuoteNotifier
	if cfg.DiscordWebhookURL != "" {
		notifiers = append(notifiers, transferEvents.NewDiscordNotifier(cfg.DiscordWebhookURL))
	}
	if cfg.TelegramToken != "" {
		bot, err := transferEvents.NewTelegramBot(cfg.TelegramToken)
		if err != nil {
			log.Error("failed to start telegram bot; telegram notifications disabled", zap.Error(err))
		} else {
			notifiers = append(notifiers, transferEvents.NewTelegramNotifier(bot, cfg.TelegramChatID))
		}
	}
	return notifiers
}

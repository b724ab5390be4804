// Package main provides the main entry point for the Evercare notification service
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evercare-app/notification-service/app/handlers"
	"github.com/evercare-app/notification-service/app/router"
	"github.com/evercare-app/notification-service/app/scheduler"
	"github.com/evercare-app/notification-service/app/services"
	businessflow "github.com/evercare-app/notification-service/business_flow"
	"github.com/evercare-app/notification-service/config"
	"github.com/evercare-app/notification-service/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting Evercare notification service...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity.
// Returns nil when caching is disabled; the plan gate degrades to direct
// database lookups.
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeChannels builds the delivery services and the channel registry.
// A provider domain of "mock" swaps in the in-memory implementation, used for
// local runs and staging smoke tests.
func initializeChannels(cfg *config.ProductionConfig) (*services.ChannelRegistry, services.SMSService) {
	var smsService services.SMSService
	switch cfg.SMS.ProviderDomain {
	case "mock":
		smsService = services.NewMockSMSService()
	default:
		smsService = services.NewSMSService(&cfg.SMS)
	}

	var pushService services.PushService
	switch cfg.Push.ProviderDomain {
	case "mock":
		pushService = services.NewMockPushService()
	default:
		pushService = services.NewPushService(&cfg.Push)
	}

	var emailService services.EmailService
	switch cfg.Email.Host {
	case "mock":
		emailService = services.NewMockEmailService()
	default:
		emailService = services.NewEmailService(&cfg.Email)
	}

	adapters := []services.ChannelAdapter{
		services.NewPushAdapter(pushService),
		services.NewSMSAdapter(smsService),
		services.NewEmailAdapter(emailService),
	}
	if cfg.SMS.VoiceEnabled {
		adapters = append(adapters, services.NewCallAdapter(smsService, cfg.SMS.WebhookBaseURL))
	}

	return services.NewChannelRegistry(adapters...), smsService
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, 30*time.Second)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Initialize repositories
	notificationRepo := repository.NewScheduledNotificationRepository(db)
	deliveryLogRepo := repository.NewDeliveryLogRepository(db)
	careContactRepo := repository.NewCareContactRepository(db)
	pushSubRepo := repository.NewPushSubscriptionRepository(db)
	profileRepo := repository.NewUserProfileRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	medicationRepo := repository.NewMedicationTrackingRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	// Initialize services
	registry, smsService := initializeChannels(cfg)
	composer := services.NewMessageComposer(cfg.SMS.WebhookBaseURL + "/api/v1/webhooks/voice-response")
	schedulerLogger := scheduler.NewSchedulerLogger(cfg.Logging)
	gate := services.NewPlanGate(subscriptionRepo, rc, &cfg.Cache, schedulerLogger)

	// Initialize flows
	deliveryFlow := businessflow.NewDeliveryFlow(
		db,
		deliveryLogRepo,
		pushSubRepo,
		notificationRepo,
		medicationRepo,
		activityRepo,
		schedulerLogger,
	)

	responseFlow := businessflow.NewResponseFlow(
		deliveryLogRepo,
		notificationRepo,
		careContactRepo,
		profileRepo,
		smsService,
		schedulerLogger,
	)

	// Initialize the dispatch scheduler
	notificationScheduler := scheduler.NewNotificationScheduler(
		notificationRepo,
		deliveryLogRepo,
		profileRepo,
		pushSubRepo,
		registry,
		composer,
		gate,
		schedulerLogger,
		cfg.Scheduler,
	)
	if cfg.Scheduler.Enabled {
		stop := notificationScheduler.Start(context.Background())
		stopFuncs = append(stopFuncs, stop)
		log.Printf("Scheduler started with tick interval %s", cfg.Scheduler.TickInterval)
	}

	// Initialize handlers
	notificationHandler := handlers.NewNotificationHandler(deliveryFlow, notificationScheduler)
	webhookHandler := handlers.NewWebhookHandler(responseFlow, notificationRepo, profileRepo, composer)

	// Initialize router
	appRouter := router.NewFiberRouter(cfg, notificationHandler, webhookHandler)

	return &Application{
		router:    appRouter,
		config:    cfg,
		server:    appRouter.GetApp(),
		stopFuncs: stopFuncs,
	}, nil
}

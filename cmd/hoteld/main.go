package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hotel-booking-backend/config"
	"hotel-booking-backend/internal/api"
	"hotel-booking-backend/internal/availability"
	"hotel-booking-backend/internal/booking"
	"hotel-booking-backend/internal/db"
	"hotel-booking-backend/internal/gateway"
	"hotel-booking-backend/internal/idgen"
	"hotel-booking-backend/internal/notification"
	"hotel-booking-backend/internal/payment"
	"hotel-booking-backend/internal/store"
	"hotel-booking-backend/internal/sweeper"

	"github.com/SherClockHolmes/webpush-go"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "hotel-backend ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Payment.SecretKey == "" {
		logger.Println("WARNING: payment.secret_key is empty; Chapa checkouts will be rejected")
	}

	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		logger.Println("VAPID keys are not configured; push notifications are disabled")
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	// Events are delivered after commit on the worker pool.
	dispatcher := notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize)
	dispatcher.Subscribe(notification.LogConsumer{})
	if webpushOptions != nil {
		dispatcher.Subscribe(notification.NewPushConsumer(appStore.Subscriptions(), webpushOptions))
	}
	dispatcher.Start(ctx)

	ids := idgen.Random{}
	oracle := availability.NewOracle(appStore)
	coordinator := booking.NewCoordinator(appStore, oracle, dispatcher, ids, booking.Options{
		ExpiryWindow: cfg.Booking.ExpiryWindow(),
		TaxRate:      cfg.Booking.TaxRate,
	})
	reconciler := payment.NewReconciler(appStore, gateway.NewChapa(cfg.Payment), dispatcher, ids, payment.Options{
		Currency:    cfg.Payment.Currency,
		CallbackURL: cfg.Payment.CallbackURL,
		ReturnURL:   cfg.Payment.ReturnURL,
	})

	// Run the expiry sweeper in the background
	sweeperSvc := sweeper.NewService(cfg.Sweeper, coordinator)
	go sweeperSvc.Run(ctx)

	// Initialize router
	handler := api.NewHandler(api.Services{
		Store:         appStore,
		Oracle:        oracle,
		Coordinator:   coordinator,
		Reconciler:    reconciler,
		WebPush:       webpushOptions,
		Booking:       cfg.Booking,
		WebhookSecret: cfg.Payment.WebhookSecret,
	})
	router := api.NewRouter(handler, cfg.Server, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}
	cancel()

	logger.Println("Server gracefully stopped")
}

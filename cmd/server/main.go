package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"negotiation/internal/app"
	"negotiation/internal/config"
	"negotiation/internal/handler"
	internalRedis "negotiation/internal/redis"
	"negotiation/internal/repository/postgres"
	"negotiation/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	if err := service.DefaultPricingConfig().Validate(); err != nil {
		log.Fatalf("invalid pricing policy: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Wire dependencies.
	server, expiry := wireServer(db, redisClient, nrApp, cfg)

	// Re-arm expiration timers for negotiations that were pending when the
	// previous process stopped.
	if err := expiry.Rescan(ctx); err != nil {
		log.Fatalf("failed to rescan pending negotiations: %v", err)
	}

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	expiry.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server and the
// expiry scheduler (for rescan at startup and stop at shutdown).
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) (*http.Server, *service.ExpiryScheduler) {
	// Initialize Redis stores.
	attrsStore := internalRedis.NewTripAttributesStore(redisClient)
	conditionStore := internalRedis.NewConditionStore(redisClient, cfg.Negotiation.StationRadiusKm)
	lockStore := internalRedis.NewLockStore(redisClient)

	// Initialize repository.
	negotiationRepo := postgres.NewNegotiationRepository(db)

	// Initialize services.
	notificationService := service.NewNotificationService()
	pricingService := service.NewPricingService(service.DefaultPricingConfig())
	arbitrator := service.NewArbitrator(negotiationRepo)
	expiry := service.NewExpiryScheduler(arbitrator, negotiationRepo)
	negotiationService := service.NewNegotiationService(
		negotiationRepo,
		pricingService,
		arbitrator,
		expiry,
		attrsStore,
		conditionStore,
		lockStore,
		notificationService,
		service.NegotiationPolicy{
			OfferTTL:       cfg.Negotiation.OfferTTL,
			CounterTTL:     cfg.Negotiation.CounterTTL,
			FloorFraction:  cfg.Negotiation.FloorFraction,
			CounterCeiling: cfg.Negotiation.CounterCeiling,
		},
	)

	// Initialize handlers.
	negotiationHandler := handler.NewNegotiationHandler(negotiationService)
	pricingHandler := handler.NewPricingHandler(negotiationService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		NegotiationHandler: negotiationHandler,
		PricingHandler:     pricingHandler,
		RedisClient:        redisClient,
		NewRelicApp:        nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, expiry
}

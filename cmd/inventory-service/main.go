package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/foodtrack/foodtrack-backend/internal/inventory/events"
	"github.com/foodtrack/foodtrack-backend/internal/inventory/handler"
	"github.com/foodtrack/foodtrack-backend/internal/inventory/repository"
	"github.com/foodtrack/foodtrack-backend/internal/inventory/service"
	"github.com/foodtrack/foodtrack-backend/pkg/config"
	"github.com/foodtrack/foodtrack-backend/pkg/database"
	"github.com/foodtrack/foodtrack-backend/pkg/httputil"
	"github.com/foodtrack/foodtrack-backend/pkg/logger"
	"github.com/foodtrack/foodtrack-backend/pkg/messaging"
	"github.com/foodtrack/foodtrack-backend/pkg/metrics"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("inventory-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("inventory-service", cfg.Server.Environment)
	log.Info().Msg("starting Inventory Service")

	// Apply pending migrations before opening the pooled connection
	if err := runMigrations(&cfg.Database); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := events.NewInventoryEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize metrics
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
	}

	// Initialize repositories
	sectionRepo := repository.NewSectionRepository(db)
	itemRepo := repository.NewItemRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	transferRepo := repository.NewTransferRepository(db)

	// Initialize service
	inventoryService := service.NewInventoryService(db, sectionRepo, itemRepo, auditRepo, transferRepo, publisher, m, log)

	// Initialize handlers
	sectionHandler := handler.NewSectionHandler(inventoryService, log)
	itemHandler := handler.NewItemHandler(inventoryService, log)
	stockHandler := handler.NewStockHandler(inventoryService, log)
	transferHandler := handler.NewTransferHandler(inventoryService, log)
	expiryHandler := handler.NewExpiryHandler(inventoryService, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the periodic expiry scanner
	if cfg.Scheduler.Enabled {
		scanner := service.NewExpiryScanner(inventoryService, cfg.Scheduler.ScanInterval, log)
		scanner.Start(ctx)
		defer scanner.Stop()
	}

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "X-User-ID", "X-User-Name", "X-User-Role"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(httputil.ActorMiddleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "inventory-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// Prometheus metrics
	if cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	// API routes
	r.Route("/api/v1/inventory", func(r chi.Router) {
		r.Route("/sections", func(r chi.Router) {
			r.Get("/", sectionHandler.List)
			r.Post("/", sectionHandler.Create)
			r.Get("/{id}", sectionHandler.Get)
		})

		r.Route("/items", func(r chi.Router) {
			r.Get("/", itemHandler.List)
			r.Post("/", itemHandler.Create)
			r.Get("/alerts", itemHandler.Alerts)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", itemHandler.Get)
				r.Put("/", itemHandler.Update)
				r.Post("/adjust", stockHandler.Adjust)
				r.Post("/set-stock", stockHandler.Set)
				r.Post("/acknowledge", stockHandler.Acknowledge)
				r.Get("/audit", stockHandler.Audit)
				r.Post("/mark-expired", expiryHandler.MarkExpired)
				r.Post("/extend-expiry", expiryHandler.ExtendExpiry)
				r.Post("/dispose", expiryHandler.Dispose)
			})
		})

		r.Route("/transfers", func(r chi.Router) {
			r.Get("/", transferHandler.List)
			r.Post("/", transferHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", transferHandler.Get)
				r.Post("/approve", transferHandler.Approve)
				r.Post("/reject", transferHandler.Reject)
				r.Post("/complete", transferHandler.Complete)
			})
		})

		r.Post("/expiry-scan", expiryHandler.RunScan)
	})

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	log.Info().Msg("server stopped")
}

// runMigrations applies pending goose migrations on a dedicated
// connection so the pool never sees a half-migrated schema.
func runMigrations(cfg *config.DatabaseConfig) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer sqlDB.Close()

	if err := goose.Up(sqlDB, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

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

	"github.com/agrotrace/agrotrace-backend/internal/trace/events"
	"github.com/agrotrace/agrotrace-backend/internal/trace/handler"
	"github.com/agrotrace/agrotrace-backend/internal/trace/repository"
	"github.com/agrotrace/agrotrace-backend/internal/trace/service"
	"github.com/agrotrace/agrotrace-backend/pkg/actor"
	"github.com/agrotrace/agrotrace-backend/pkg/config"
	"github.com/agrotrace/agrotrace-backend/pkg/database"
	"github.com/agrotrace/agrotrace-backend/pkg/httputil"
	"github.com/agrotrace/agrotrace-backend/pkg/logger"
	"github.com/agrotrace/agrotrace-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("trace-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("trace-service", cfg.Server.Environment)
	log.Info().Msg("starting Trace Service")

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
	publisher, err := events.NewTraceEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize repositories
	counterRepo := repository.NewCounterRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	receivingRepo := repository.NewReceivingRepository(db)
	shipmentRepo := repository.NewShipmentRepository(db)
	lookupRepo := repository.NewLookupRepository(db)
	balanceRepo := repository.NewBalanceRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	lotRepo := repository.NewLotRepository(db)

	// Initialize services
	allocator := service.NewAllocator(counterRepo, cfg.Allocator, log)
	recorder := service.NewRecorder(auditRepo, log)
	ledger := service.NewLedger(balanceRepo, recorder, publisher, log)
	finalizer := service.NewFinalizer(
		receivingRepo, shipmentRepo, catalogRepo, lookupRepo, lotRepo,
		allocator, ledger, recorder, publisher, log,
	)

	// Initialize handlers
	receivingHandler := handler.NewReceivingHandler(finalizer, receivingRepo, log)
	shipmentHandler := handler.NewShipmentHandler(finalizer, shipmentRepo, log)
	balanceHandler := handler.NewBalanceHandler(balanceRepo, log)
	auditHandler := handler.NewAuditHandler(auditRepo, log)
	lotHandler := handler.NewLotHandler(lotRepo, log)
	catalogHandler := handler.NewCatalogHandler(catalogRepo, log)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(actor.Middleware(cfg.JWT.Secret))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "trace-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1/trace", func(r chi.Router) {
		r.Route("/receivings", func(r chi.Router) {
			r.Get("/", receivingHandler.List)
			r.Post("/", receivingHandler.Create)
			r.Get("/uncoded", receivingHandler.ListUncoded)
			r.Get("/{id}", receivingHandler.Get)
			r.Put("/{id}", receivingHandler.Update)
			r.Delete("/{id}", receivingHandler.Delete)
			r.Post("/{id}/retry-code", receivingHandler.RetryCode)
		})

		r.Route("/shipments", func(r chi.Router) {
			r.Get("/", shipmentHandler.List)
			r.Post("/", shipmentHandler.Create)
			r.Get("/uncoded", shipmentHandler.ListUncoded)
			r.Get("/{id}", shipmentHandler.Get)
			r.Put("/{id}", shipmentHandler.Update)
			r.Delete("/{id}", shipmentHandler.Delete)
			r.Post("/{id}/retry-code", shipmentHandler.RetryCode)
		})

		r.Route("/warehouses/{warehouseID}/balances", func(r chi.Router) {
			r.Get("/", balanceHandler.ListByWarehouse)
			r.Get("/{productID}", balanceHandler.Get)
		})

		r.Route("/audit/{table}", func(r chi.Router) {
			r.Get("/", auditHandler.ListByTable)
			r.Get("/{recordID}", auditHandler.ListByRecord)
		})

		r.Route("/lots", func(r chi.Router) {
			r.Get("/", lotHandler.List)
			r.Get("/{code}", lotHandler.Get)
		})

		r.Get("/products", catalogHandler.ListProducts)
		r.Get("/warehouses", catalogHandler.ListWarehouses)
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	log.Info().Msg("trace service stopped")
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/course-commerce-payments/internal/api_gateway"
	"github.com/course-commerce-payments/internal/api_gateway/components"
	"github.com/course-commerce-payments/internal/config"
	"github.com/course-commerce-payments/internal/data/mongo"
	"github.com/course-commerce-payments/internal/data/postgres"
	"github.com/course-commerce-payments/internal/logger"
	"github.com/course-commerce-payments/internal/platform/gateway"
	"github.com/course-commerce-payments/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	if cfg.Gateway.ServerKey == "" {
		log.Warn("GATEWAY_SERVER_KEY is not set; webhooks will be rejected until it is configured")
	}

	// Apply schema migrations before any repository touches the database
	if err := persistence.RunMigrations(cfg.Postgres.URL, cfg.Postgres.MigrationsPath); err != nil {
		log.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}
	log.Info("Database migrations applied", "path", cfg.Postgres.MigrationsPath)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	repos := components.Repositories{
		Accounts:     postgres.NewAccountRepository(log, postgresDB),
		Transactions: postgres.NewTransactionRepository(log, postgresDB),
		Orders:       postgres.NewOrderRepository(log, postgresDB),
		Catalog:      postgres.NewCatalogRepository(log, postgresDB),
		Outbox:       postgres.NewOutboxRepository(log, postgresDB),
		Audit:        mongo.NewAuditRepository(log, mongoDB.Database()),
	}

	// Initialize payment gateway collaborators
	gatewayClient := gateway.NewClient(log.With("component", "gateway_client"), &cfg.Gateway)
	verifier := gateway.NewSignatureVerifier(cfg.Gateway.ServerKey)

	// Initialize services
	services := components.CreatePaymentServices(postgresDB, repos, gatewayClient, verifier, log, cfg)

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, services)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before the pools they depend on go away
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Cancel the application context
	cancelAppCtx()

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}

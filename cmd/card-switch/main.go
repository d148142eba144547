package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cardswitch/card-switch/internal/admin"
	"github.com/cardswitch/card-switch/internal/admin/handler"
	"github.com/cardswitch/card-switch/internal/audit"
	"github.com/cardswitch/card-switch/internal/config"
	mongodata "github.com/cardswitch/card-switch/internal/data/mongo"
	"github.com/cardswitch/card-switch/internal/data/postgres"
	redisdata "github.com/cardswitch/card-switch/internal/data/redis"
	"github.com/cardswitch/card-switch/internal/fraud"
	"github.com/cardswitch/card-switch/internal/ingress"
	"github.com/cardswitch/card-switch/internal/logger"
	"github.com/cardswitch/card-switch/internal/pipeline"
	"github.com/cardswitch/card-switch/internal/pipeline/stages"
	"github.com/cardswitch/card-switch/internal/platform/messaging/producers"
	"github.com/cardswitch/card-switch/internal/platform/persistence"
	"github.com/cardswitch/card-switch/internal/routing"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("card_switch")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

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
	if err := mongoDB.EnsureAuditIndexes(appCtx, mongodata.AuditCollectionName); err != nil {
		log.Error("Failed to create audit trail indexes", "error", err)
		os.Exit(1)
	}

	redisDB, err := persistence.NewRedisDB(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for audit events (nil when no topic configured)
	kafkaProducer, err := producers.NewAuditEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize audit event Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize stores
	transactionStore := postgres.NewTransactionStore(log, postgresDB)
	routingStore := postgres.NewRoutingStore(log, postgresDB)
	auditTrail := mongodata.NewAuditTrail(log, mongoDB.Database())
	velocityCounter := redisdata.NewVelocityCounter(log, redisDB.Client(), cfg.Fraud.VelocityWindow)

	// Initialize engines and audit recorder
	fraudEngine, err := fraud.NewEngine(cfg.Fraud, velocityCounter, log)
	if err != nil {
		log.Error("Failed to initialize fraud engine", "error", err)
		os.Exit(1)
	}
	routingEngine := routing.NewEngine(routingStore, cfg.Routing.CacheTTL, log)

	var publisher audit.EventPublisher
	if kafkaProducer != nil {
		publisher = kafkaProducer
	}
	recorder := audit.NewRecorder(auditTrail, publisher, logger.NewAuditLogger(log), log)

	// Assemble the pipeline
	dispatcher := pipeline.NewDispatcher(log,
		[]pipeline.Stage{
			stages.NewAuditStage(transactionStore, recorder, log),
			stages.NewValidationStage(log),
			stages.NewFraudStage(fraudEngine, log),
			stages.NewRoutingStage(routingEngine, log),
			stages.NewTypeDispatchStage(transactionStore, log),
		},
		stages.NewResponseStage(log),
	)

	// Initialize ingress queue and worker pool
	queue := ingress.NewQueue(cfg.Switch.QueueCapacity)
	pool, err := ingress.NewWorkerPool(dispatcher, queue, ingress.WorkerPoolConfig{
		Size:               cfg.WorkerPool.Size,
		TransactionTimeout: cfg.Switch.TransactionTimeout,
	}, log)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}
	pool.Start(appCtx)
	log.Info("Pipeline worker pool started",
		"workers", cfg.WorkerPool.Size,
		"queue_capacity", cfg.Switch.QueueCapacity,
		"transaction_timeout", cfg.Switch.TransactionTimeout,
	)

	// Initialize admin server
	healthChecks := map[string]handler.HealthCheck{
		"postgres": postgresDB.HealthCheck,
		"mongodb":  mongoDB.HealthCheck,
		"redis":    redisDB.HealthCheck,
	}
	statusHandler := handler.NewStatusHandler(log, pool, queue, healthChecks)
	routingHandler := handler.NewRoutingHandler(log, routingStore, routingEngine)
	auditHandler := handler.NewAuditHandler(log, auditTrail)
	server := admin.NewServer(log, cfg, recorder, statusHandler, routingHandler, auditHandler)

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start admin server in goroutine
	go func() {
		log.Info("Starting admin HTTP server", "port", cfg.Admin.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("admin HTTP server error: %w", err)
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

	// Cancel the application context; the queue consumer stops here
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Admin.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Drain in-flight transactions before tearing anything down
	pool.Shutdown()

	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during admin server shutdown", "error", err)
	}

	if kafkaProducer != nil {
		if err = kafkaProducer.Close(); err != nil {
			log.Error("Error closing Kafka producer", "error", err)
		}
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if err = redisDB.Close(); err != nil {
		log.Error("Error closing Redis connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("Switch shutdown with errors", "error", serverErr)
	} else {
		log.Info("Switch shutdown completed successfully")
	}
}

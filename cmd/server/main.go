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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/boardsync/server/internal/boardapi"
	"github.com/boardsync/server/internal/config"
	"github.com/boardsync/server/internal/handlers"
	custommw "github.com/boardsync/server/internal/middleware"
	"github.com/boardsync/server/internal/observability"
	"github.com/boardsync/server/internal/repository"
	"github.com/boardsync/server/internal/services"
)

const serviceVersion = "1.0.0"

// @title BoardSync Server API
// @version 1.0
// @description Bidirectional sync between an external work-tracking board and a local store
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Column maps are static wiring; a typo there must not survive startup
	if err := boardapi.ValidateColumnMaps(); err != nil {
		log.Fatalf("Invalid column mapping: %v", err)
	}

	// Initialize telemetry
	telemetry, err := observability.Initialize(context.Background(),
		observability.NewConfig("boardsync-server", serviceVersion))
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(ctx); err != nil {
			log.Printf("Telemetry shutdown error: %v", err)
		}
	}()

	// Initialize database
	var db *sql.DB
	if cfg.UsePostgres() {
		log.Println("Using PostgreSQL database")
		db, err = repository.NewPostgresDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL database: %v", err)
		}
	} else {
		log.Println("Using SQLite database")
		db, err = repository.NewSQLiteDB(cfg.DatabasePath)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite database: %v", err)
		}
	}
	defer db.Close()

	// Wrap the DB so every query is traced and measured
	tracedDB, err := observability.NewTraceDB(db)
	if err != nil {
		log.Fatalf("Failed to initialize DB tracing: %v", err)
	}

	// Repositories
	workItemRepo := repository.NewWorkItemRepository(tracedDB)
	staffRepo := repository.NewStaffRepository(tracedDB)
	customerRepo := repository.NewCustomerRepository(tracedDB)
	projectRepo := repository.NewProjectRepository(tracedDB)
	syncStateRepo := repository.NewSyncStateRepository(tracedDB)
	syncLogRepo := repository.NewSyncLogRepository(tracedDB)
	noteRepo := repository.NewNoteRepository(tracedDB)

	// Board API client
	boardClient := boardapi.NewClient(boardapi.ClientConfig{
		Endpoint:         cfg.Board.Endpoint,
		APIKey:           cfg.Board.APIKey,
		OwnerEmailColumn: cfg.Board.OwnerEmailColumn,
		PageSize:         cfg.Board.PageSize,
		PageDelay:        time.Duration(cfg.Board.PageDelayMs) * time.Millisecond,
	})

	// Metrics
	syncMetrics, err := observability.NewSyncMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize sync metrics: %v", err)
	}
	httpMetrics, err := observability.NewHTTPMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize HTTP metrics: %v", err)
	}

	// Services
	writer := services.NewBatchWriter(workItemRepo, customerRepo, projectRepo,
		staffRepo, syncLogRepo, syncMetrics, cfg.Sync.UpdateWorkers)
	runner := services.NewSyncRunner(boardClient, writer, syncStateRepo,
		cfg.Board.WorkItemBoardID, cfg.Sync.ChunkSize,
		time.Duration(cfg.Board.PageDelayMs)*time.Millisecond)
	orchestrator := services.NewSyncOrchestrator(boardClient, runner, writer,
		syncStateRepo, workItemRepo, cfg.Board.WorkItemBoardID, cfg.Board.StaffBoardID, syncMetrics)
	propagator := services.NewPropagator(boardClient, workItemRepo, syncLogRepo,
		cfg.Board.WorkItemBoardID, syncMetrics)

	webhookService := services.NewWebhookService(cfg.Webhook.Secret, syncMetrics)
	webhookService.Register(cfg.Board.WorkItemBoardID,
		services.NewWorkItemBoardHandler(orchestrator, workItemRepo, customerRepo, projectRepo))
	webhookService.Register(cfg.Board.StaffBoardID,
		services.NewStaffBoardHandler(orchestrator, staffRepo))

	// Handlers
	syncHandler := handlers.NewSyncHandler(orchestrator)
	itemHandler := handlers.NewItemHandler(workItemRepo, noteRepo, propagator)
	webhookHandler := handlers.NewWebhookHandler(webhookService)
	healthHandler := handlers.NewHealthHandler()

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.TracingMiddleware("boardsync-server"))
	r.Use(observability.MetricsMiddleware(httpMetrics))
	r.Use(custommw.APIKeyAuth(cfg.Security.APIKey, cfg.Security.APIKeyHeader))

	// Routes
	r.Get("/health", healthHandler.HealthCheck)
	r.Post("/webhook", webhookHandler.Receive)
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/sync", syncHandler.StartSync)
		r.Get("/sync", syncHandler.GetSyncStatus)
		r.Post("/sync/check-latest", syncHandler.CheckLatest)
		r.Post("/sync/staff", syncHandler.SyncStaff)

		r.Get("/items", itemHandler.ListItems)
		r.Get("/items/{externalId}", itemHandler.GetItem)
		r.Get("/items/{externalId}/notes", itemHandler.ListNotes)
		r.Post("/items/{externalId}/notes", itemHandler.AddNote)

		r.Post("/push", itemHandler.Push)
	})

	// Create server
	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("BoardSync Server starting on %s", cfg.ServerAddress)
		log.Printf("Work item board: %s, staff board: %s",
			cfg.Board.WorkItemBoardID, cfg.Board.StaffBoardID)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

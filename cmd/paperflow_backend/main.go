package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/opsarc/paperflow/internal/adapters/agent"
	"github.com/opsarc/paperflow/internal/adapters/extraction"
	"github.com/opsarc/paperflow/internal/core/domain"
	portssvc "github.com/opsarc/paperflow/internal/core/ports/services"
	"github.com/opsarc/paperflow/internal/core/services"
	"github.com/opsarc/paperflow/internal/handlers"
	"github.com/opsarc/paperflow/internal/middleware"
	"github.com/opsarc/paperflow/internal/platform/config"
	"github.com/opsarc/paperflow/internal/repositories/database/pgsql"
	"github.com/opsarc/paperflow/pkg/database"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// @title Paperflow API
// @version 1.0
// @description Confidence-gated back-office workflow engine with a double-entry ledger.

// @host localhost:8080
// @BasePath /
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize database connection pool (for application use)
	dbPool, err := database.NewPgxPool(context.Background(), cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()
	logger.Info("Database connection pool established.")

	if err := runMigrations(cfg, logger); err != nil {
		os.Exit(1)
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery, CORS)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", middleware.ActorHeader},
		MaxAge:       12 * time.Hour,
	}))

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// The definition registry ships with the built-in invoice workflows.
	// Definitions are code-registered; there is no definition CRUD API.
	registry := services.NewDefinitionRegistry()
	if err := registerBuiltinWorkflows(registry); err != nil {
		logger.Error("Failed to register built-in workflow definitions", slog.String("error", err.Error()))
		os.Exit(1)
	}

	repos := pgsql.NewRepositoryProvider(dbPool)
	container := services.NewServiceContainer(repos, registry, services.Collaborators{
		Extractor: extraction.NewFieldExtractor(),
		Agent:     agent.NewTaskRunner(),
	})

	handlers.RegisterRoutes(r, cfg, container)

	logger.Info("Server starting", slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// runMigrations applies all pending "up" migrations from the migrations
// directory before the server starts serving traffic.
func runMigrations(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("Running database migrations...")

	// Open a temporary standard sql.DB connection for migrations.
	// Using pgx/v5/stdlib driver to be compatible with the main pool.
	migrationDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to open database connection for migrations", slog.String("error", err.Error()))
		return err
	}
	if err := migrationDB.Ping(); err != nil {
		logger.Error("Failed to ping database for migrations", slog.String("error", err.Error()))
		return err
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		logger.Error("Could not create postgres driver instance for migrations", slog.String("error", err.Error()))
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		logger.Error("Could not create migrate instance", slog.String("error", err.Error()))
		return err
	}

	upErr := m.Up()
	if upErr != nil && upErr != migrate.ErrNoChange {
		logger.Error("Failed to apply migrations", slog.String("error", upErr.Error()))
		return upErr
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		logger.Error("Migration source error", slog.String("error", sourceErr.Error()))
		return sourceErr
	}
	if dbErr != nil {
		logger.Error("Migration database error", slog.String("error", dbErr.Error()))
		return dbErr
	}

	if upErr == migrate.ErrNoChange {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}

// registerBuiltinWorkflows seeds the registry with the invoice workflows the
// service ships with.
func registerBuiltinWorkflows(registry portssvc.DefinitionRegistrySvc) error {
	threshold := 0.9

	invoiceApproval := domain.WorkflowDefinition{
		DefinitionID: "invoice-approval",
		Name:         "Invoice Approval",
		Description:  "Extracts invoice fields and posts them to the ledger, pausing for review when extraction confidence is low.",
		StartStepID:  "process",
		Steps: []domain.WorkflowStep{
			{
				StepID:              "process",
				Name:                "Process Invoice",
				Type:                domain.StepInvoiceProcessing,
				ConfidenceThreshold: &threshold,
			},
		},
	}
	if err := registry.Register(invoiceApproval); err != nil {
		return err
	}

	invoiceIntake := domain.WorkflowDefinition{
		DefinitionID: "invoice-intake",
		Name:         "Invoice Intake",
		Description:  "Classifies an incoming document, then extracts and posts it as an invoice.",
		StartStepID:  "classify",
		Steps: []domain.WorkflowStep{
			{
				StepID:     "classify",
				Name:       "Classify Document",
				Type:       domain.StepAgentExecution,
				Parameters: map[string]any{"task": "classify-document"},
				NextStepID: "post",
			},
			{
				StepID:              "post",
				Name:                "Post Invoice",
				Type:                domain.StepInvoiceProcessing,
				ConfidenceThreshold: &threshold,
			},
		},
	}
	return registry.Register(invoiceIntake)
}

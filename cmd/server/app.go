package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/provix/provix-api/internal/api"
	"github.com/provix/provix-api/internal/api/middleware"
	"github.com/provix/provix-api/internal/config"
	"github.com/provix/provix-api/internal/payment"
	"github.com/provix/provix-api/internal/platform/logger"
	"github.com/provix/provix-api/internal/platform/postgres"
	"github.com/provix/provix-api/internal/provisioning"
	"github.com/provix/provix-api/internal/retry"
	"github.com/provix/provix-api/internal/service"
	"github.com/provix/provix-api/internal/service/auth"
	"github.com/provix/provix-api/internal/store"
	"github.com/provix/provix-api/internal/task"
)

// application holds every long-lived dependency of the server.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	userStore store.UserStore

	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	authMiddleware   *middleware.AuthMiddleware

	creditService  service.CreditService
	paymentService service.PaymentService
	taskService    service.TaskService

	runner *task.Runner

	authHandler        *api.AuthHandler
	creditHandler      *api.CreditHandler
	transactionHandler *api.TransactionHandler
	taskHandler        *api.TaskHandler
	webhookHandler     *api.WebhookHandler
}

// newApplication loads configuration and builds the full dependency graph.
func newApplication() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	db, err := openDatabase(cfg, appLogger)
	if err != nil {
		return nil, err
	}

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := postgres.Migrate(migrateCtx, db); err != nil {
		return nil, err
	}
	appLogger.Info("database migrations applied")

	// Stores
	userStore := postgres.NewPostgresUserStore(db, appLogger)
	creditStore := postgres.NewPostgresCreditStore(db, appLogger)
	planStore := postgres.NewPostgresPlanStore(db, appLogger)
	txnStore := postgres.NewPostgresTransactionStore(db, appLogger)
	taskStore := postgres.NewPostgresTaskStore(db, appLogger)
	taskLogStore := postgres.NewPostgresTaskLogStore(db, appLogger)

	// Auth
	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}
	passwordVerifier := auth.NewBcryptVerifier()

	// Payment gateway and provisioning engine
	gateway := payment.NewMercadoPago(cfg.Payment, appLogger)
	engine := provisioning.NewEngineClient(cfg.Task.EngineURL)

	// Services
	creditService := service.NewCreditService(creditStore, appLogger)
	paymentService := service.NewPaymentService(
		db, txnStore, planStore, userStore, creditStore, gateway, appLogger)

	// Task pipeline
	policy := retry.DefaultPolicy()
	if cfg.Task.MaxRetries > 0 {
		policy.MaxRetries = cfg.Task.MaxRetries
	}
	processor := task.NewProcessor(taskStore, taskLogStore, creditService, engine, policy, appLogger)
	runner := task.NewRunner(taskStore, processor, task.RunnerConfig{
		WorkerCount:  cfg.Task.WorkerCount,
		PollInterval: cfg.Task.PollInterval,
	}, appLogger)

	taskService := service.NewTaskService(taskStore, taskLogStore, creditStore, runner, appLogger)

	app := &application{
		config:           cfg,
		logger:           appLogger,
		db:               db,
		userStore:        userStore,
		jwtService:       jwtService,
		passwordVerifier: passwordVerifier,
		authMiddleware:   middleware.NewAuthMiddleware(jwtService),
		creditService:    creditService,
		paymentService:   paymentService,
		taskService:      taskService,
		runner:           runner,
	}

	app.authHandler = api.NewAuthHandler(userStore, jwtService, passwordVerifier)
	app.creditHandler = api.NewCreditHandler(creditService, paymentService)
	app.transactionHandler = api.NewTransactionHandler(paymentService)
	app.taskHandler = api.NewTaskHandler(taskService)
	app.webhookHandler = api.NewWebhookHandler(paymentService, cfg.Payment.WebhookSecret)

	return app, nil
}

// run starts the task runner, the transaction expiry sweep, and the HTTP
// server, blocking until shutdown.
func (app *application) run(ctx context.Context) error {
	if err := app.runner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}

	go app.sweepExpiredTransactions(ctx)

	return app.startHTTPServer(ctx, app.setupRouter())
}

// sweepExpiredTransactions periodically moves pending transactions whose
// PIX charge lapsed to expired, until ctx is cancelled.
func (app *application) sweepExpiredTransactions(ctx context.Context) {
	ticker := time.NewTicker(app.config.Payment.ExpirySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := app.paymentService.ExpireOverdueTransactions(ctx); err != nil {
				app.logger.Error("transaction expiry sweep failed", "error", err)
			}
		}
	}
}

// cleanup releases long-lived resources in reverse dependency order.
func (app *application) cleanup() {
	if app.runner != nil {
		app.runner.Stop()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database", "error", err)
		}
	}
}

// openDatabase connects to PostgreSQL and configures the connection pool.
func openDatabase(cfg *config.Config, log *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("database connection established")
	return db, nil
}

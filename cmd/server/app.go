package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskhub/internal/config"
	"github.com/phrazzld/taskhub/internal/events"
	"github.com/phrazzld/taskhub/internal/fanout"
	"github.com/phrazzld/taskhub/internal/platform/logger"
	"github.com/phrazzld/taskhub/internal/platform/postgres"
	"github.com/phrazzld/taskhub/internal/realtime"
	"github.com/phrazzld/taskhub/internal/service"
	"github.com/phrazzld/taskhub/internal/service/auth"
	"github.com/phrazzld/taskhub/internal/store"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	userStore         store.UserStore
	taskStore         store.TaskStore
	notificationStore store.NotificationStore

	// Auth components
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier

	// Realtime delivery pipeline
	registry   *realtime.Registry
	dispatcher *events.Dispatcher
	applier    *fanout.Applier

	// Services
	userService         service.UserService
	taskService         service.TaskService
	notificationService service.NotificationService
}

// initializeApp loads configuration and wires together every application
// component, from the database connection up through the services. It runs
// pending migrations before returning, so a successfully initialized
// application always sees the current schema.
func initializeApp() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.Setup(cfg.Server)
	appLogger.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	db, err := setupAppDatabase(cfg, appLogger)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db, appLogger); err != nil {
		closeDatabase(db, appLogger)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		closeDatabase(db, appLogger)
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}

	app := &application{
		config: cfg,
		logger: appLogger,
		db:     db,

		userStore:         postgres.NewPostgresUserStore(db, bcrypt.DefaultCost, appLogger),
		taskStore:         postgres.NewPostgresTaskStore(db, appLogger),
		notificationStore: postgres.NewPostgresNotificationStore(db, appLogger),

		jwtService:       jwtService,
		passwordVerifier: auth.NewBcryptVerifier(),
	}

	// The registry doubles as the event deliverer: the dispatcher hands
	// envelopes to it and it fans them out to each user's live connections.
	app.registry = realtime.NewRegistry(app.jwtService, appLogger)
	app.dispatcher = events.NewDispatcher(app.registry, appLogger)
	app.applier = fanout.NewApplier(app.notificationStore, app.dispatcher, appLogger)

	app.userService = service.NewUserService(
		db,
		app.userStore,
		app.jwtService,
		app.passwordVerifier,
		appLogger,
	)
	app.taskService = service.NewTaskService(db, app.taskStore, app.applier, appLogger)
	app.notificationService = service.NewNotificationService(app.notificationStore, appLogger)

	appLogger.Info("Application initialized")
	return app, nil
}

// cleanup releases resources held by the application. Safe to call once
// during shutdown.
func (app *application) cleanup() {
	closeDatabase(app.db, app.logger)
}

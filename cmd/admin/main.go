package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"
	"github.com/rs/cors"

	cfg "github.com/bitrust/admin-backend/config"
	"github.com/bitrust/admin-backend/internal/auth"
	"github.com/bitrust/admin-backend/internal/handlers"
	"github.com/bitrust/admin-backend/internal/store"
	"github.com/bitrust/admin-backend/internal/usecases"
	"github.com/bitrust/admin-backend/internal/workers"
	"github.com/bitrust/admin-backend/pkg/database"
)

// Server timeout constants.
const (
	readTimeoutSeconds     = 15
	writeTimeoutSeconds    = 15
	idleTimeoutSeconds     = 60
	shutdownTimeoutSeconds = 5
)

func main() {
	time.Local = time.UTC

	config, err := cfg.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if config.App.Debug {
		opts.Level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, opts))
	logger.Info("Starting application with configuration",
		"debug", config.App.Debug,
		"server_port", config.HTTP.Port,
		"in_memory", config.DB.InMemory,
		"identity_api", config.Auth.AdminAPIURL)

	ctx := context.Background()

	gateway, cleanup, err := buildGateway(logger, config)
	if err != nil {
		logger.Error("store gateway setup failed", slog.String("error", err.Error()))
		return
	}
	defer cleanup()

	// Wire services
	coordinator := usecases.NewCoordinator(logger, gateway)
	identityClient := auth.NewClient(logger, config.Auth.AdminAPIURL, config.Auth.AdminAPIKey)
	feed := handlers.NewFeed(logger)

	profileService := usecases.NewProfileService(logger, gateway, coordinator, identityClient, feed)
	depositService := usecases.NewDepositService(logger, gateway, coordinator, feed)
	verificationService := usecases.NewVerificationService(logger, gateway, coordinator, feed)

	// Start the stale deposit watcher
	depositWatcher := workers.NewDepositWatcher(
		logger,
		depositService,
		feed,
		time.Duration(config.Workers.PendingDepositMaxAge)*time.Minute,
		time.Duration(config.Workers.PendingDepositInterval)*time.Minute,
	)
	go depositWatcher.Start(ctx)

	// Create handlers
	httpHandler := handlers.NewHTTPHandler(logger, profileService, depositService, verificationService)
	wsHandler := handlers.NewWebSocketHandler(logger, feed)

	router := mux.NewRouter()

	// Register WebSocket routes before HTTP routes
	wsHandler.RegisterRoutes(router)
	httpHandler.RegisterRoutes(router)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:         ":" + config.HTTP.Port,
		Handler:      c.Handler(router),
		ReadTimeout:  readTimeoutSeconds * time.Second,
		WriteTimeout: writeTimeoutSeconds * time.Second,
		IdleTimeout:  idleTimeoutSeconds * time.Second,
	}

	go func() {
		logger.Info("Starting server", "address", server.Addr)
		if err = server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			log.Fatal(err)
		}
	}()

	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeoutSeconds*time.Second)
	defer cancel()

	if err = server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		return
	}

	logger.Info("Server exited properly")
}

// buildGateway connects the configured store backend: the platform database
// by default, or the in-memory gateway for local development.
func buildGateway(logger *slog.Logger, config *cfg.Config) (store.Gateway, func(), error) {
	if config.DB.InMemory {
		logger.Warn("Running with the in-memory store, data will not survive a restart")
		return store.NewMemoryGateway(), func() {}, nil
	}

	pg, err := database.New(config,
		database.MaxPoolSize(config.DB.PoolMax),
		database.ConnTimeout(config.DB.ConnectTimeout),
		database.HealthCheckPeriod(config.DB.HealthCheckPeriod),
		database.Isolation(pgx.ReadCommitted),
	)
	if err != nil {
		return nil, nil, err
	}

	migrationsPath := "./migrations"
	if workDir, err := os.Getwd(); err == nil {
		if _, err := os.Stat(filepath.Join(workDir, "migrations")); !os.IsNotExist(err) {
			migrationsPath = filepath.Join(workDir, "migrations")
		} else if _, err := os.Stat(filepath.Join(workDir, "..", "migrations")); !os.IsNotExist(err) {
			migrationsPath = filepath.Join(workDir, "..", "migrations")
		}
	}

	logger.Info("Running database migrations", "path", migrationsPath)
	if err = database.RunMigrations(logger, config.DB.DatabaseURL, migrationsPath); err != nil {
		pg.Close()
		return nil, nil, err
	}
	logger.Info("Database migrations completed successfully")

	return store.NewPostgresGateway(logger, pg), pg.Close, nil
}

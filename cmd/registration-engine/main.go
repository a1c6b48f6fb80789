package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hackfest-platform/registration-engine/internal/allocation"
	"github.com/hackfest-platform/registration-engine/internal/api"
	"github.com/hackfest-platform/registration-engine/internal/cache"
	"github.com/hackfest-platform/registration-engine/internal/config"
	"github.com/hackfest-platform/registration-engine/internal/seed"
	"github.com/hackfest-platform/registration-engine/internal/services"
	"github.com/hackfest-platform/registration-engine/internal/storage"
	"github.com/hackfest-platform/registration-engine/internal/watch"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting registration-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Run database migrations
	slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
	if err := storage.MigrateFromDSN(initCtx, cfg.Database.DSN, cfg.Database.MigrationsDir); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize the transactional store
	store, err := storage.NewPostgresStore(initCtx, storage.PostgresConfig{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: int32(cfg.Database.MaxOpenConns),
		MaxIdleConns: int32(cfg.Database.MaxIdleConns),
	})
	if err != nil {
		slog.Error("failed to create store", "error", err)
		os.Exit(1)
	}
	slog.Info("database connected successfully")

	// Initialize service registry
	registry := services.NewRegistry()

	postgresProvider, err := services.NewPostgresProvider(cfg.Database.DSN)
	if err != nil {
		slog.Error("failed to create postgres provider", "error", err)
		os.Exit(1)
	}
	registry.Register("postgres", postgresProvider)

	redisProvider, err := services.NewRedisProvider(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		slog.Error("failed to create redis provider", "error", err)
		os.Exit(1)
	}
	registry.Register("redis", redisProvider)

	// Seed groups and titles if a seed file is configured
	if cfg.Seed.File != "" {
		if err := seed.Apply(initCtx, store, cfg.Seed.File); err != nil {
			slog.Error("failed to apply seed file", "error", err, "file", cfg.Seed.File)
			os.Exit(1)
		}
	}

	// Title cache and its refresh worker
	titleCache := cache.NewTitleCache(redisProvider.Client(), store, cfg.Cache.TTL)
	refresher := cache.NewRefresher(titleCache, cfg.Cache.RefreshInterval)

	// Event hub for the admin watch stream
	hub := watch.NewHub()

	// Allocation engine
	engine := allocation.NewEngine(store, hub, titleCache)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start cache refresh worker
	refresher.Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, engine, titleCache, registry, hub, cfg.Admin.APIKey)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Close backing services and the store
	registry.CloseAll()
	if err := engine.Close(); err != nil {
		slog.Error("engine close error", "error", err)
	}

	slog.Info("registration-engine stopped")
}

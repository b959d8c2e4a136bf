/*
Package main is the entry point for the HZ Arena server.

It is responsible for loading configuration, initializing the global logging system and metrics,
opening the optional account database, starting the lobby and its idle reaper, serving HTTP and
WebSocket traffic, and gracefully handling operating system interrupt signals (SIGINT, SIGTERM)
to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"hzarena/internal/app/db"
	"hzarena/internal/app/lobby"
	"hzarena/internal/configs"
	"hzarena/internal/handler"
	"hzarena/internal/pkg/logx"
	"hzarena/internal/pkg/metrics"
	"hzarena/internal/pkg/pow"
)

func main() {
	// Load configuration from .env and environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Dur("user_idle_timeout", cfg.UserIdleTimeout).
		Dur("area_idle_timeout", cfg.AreaIdleTimeout).
		Int("area_max_occupants", cfg.AreaMaxOccupants).
		Int("pow_difficulty", cfg.PowDifficulty).
		Bool("accounts_enabled", cfg.DatabaseDSN != "").
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appMetrics := metrics.New(prometheus.DefaultRegisterer)

	deps := &handler.AppDeps{
		Config:  cfg,
		Metrics: appMetrics,
		Pow:     pow.NewManager(ctx, cfg.PowDifficulty),
	}

	// Registered logins need the account database; guests work without it.
	if cfg.DatabaseDSN != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			logx.Fatal(err, "Failed to initialize database")
		}
		defer pool.Close()

		deps.Accounts = db.NewAccounts(pool)
	} else {
		logx.Warn("DATABASE_URL not set. Registered logins are disabled.")
	}

	// Initialize the lobby and its idle reaper
	manager := lobby.NewManager(cfg, lobby.WithMetrics(appMetrics))
	manager.Start(ctx)
	deps.Manager = manager

	// Setup HTTP server and routes
	router := handler.Router(ctx, deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info("HZ Arena Server starting", "address", "http://localhost"+serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	manager.Shutdown()

	logx.Info("Server gracefully stopped.")
}

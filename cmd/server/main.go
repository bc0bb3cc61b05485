// Package main provides the entry point for the push-to-talk server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maauso/pushtotalk/internal/bootstrap"
	"github.com/maauso/pushtotalk/internal/config"
	"github.com/maauso/pushtotalk/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create structured logger
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting push-to-talk server",
		slog.Int("port", cfg.Port),
		slog.String("log_format", cfg.LogFormat),
		slog.String("log_level", cfg.LogLevel),
		slog.String("output_dir", cfg.OutputDir),
		slog.Int("min_length_sec", cfg.MinLengthSec),
		slog.Int("max_length_sec", cfg.MaxLengthSec),
		slog.Bool("redis_enabled", cfg.RedisEnabled()),
	)

	// Initialize dependencies using bootstrap
	initCtx, cancelInit := context.WithTimeout(context.Background(), 10*time.Second)
	deps, err := bootstrap.NewDependencies(initCtx, cfg, logger)
	cancelInit()
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	// Initialize HTTP handlers and router
	handlers := server.NewHandlers(deps.Manager, logger)
	router := server.NewRouter(handlers, deps.Hub, logger, server.Config{
		AllowedOrigins: cfg.AllowedOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown handling
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			slog.String("addr", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	// Wait for shutdown signal or error
	var runErr error
	select {
	case sig := <-shutdownCh:
		logger.Info("received shutdown signal",
			slog.String("signal", sig.String()),
		)
	case runErr = <-errCh:
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownWait)
	defer cancel()

	logger.Info("shutting down server...")
	if err := srv.Shutdown(ctx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("shutdown failed: %w", err))
	}
	if err := deps.Close(ctx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("close dependencies: %w", err))
	}
	if runErr != nil {
		return runErr
	}

	logger.Info("server stopped gracefully")
	return nil
}

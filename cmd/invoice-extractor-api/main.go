// Package main provides the Invoice Extractor API server entrypoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kvsharma13/Invoice-extractor/cmd/invoice-extractor-api/handlers"
	"github.com/kvsharma13/Invoice-extractor/internal/app"
	"github.com/kvsharma13/Invoice-extractor/internal/config"
	"github.com/kvsharma13/Invoice-extractor/internal/monitoring"
	"github.com/kvsharma13/Invoice-extractor/internal/observability"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		cfgPath = os.Args[2]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("store", cfg.Store.Backend).
		Str("model", cfg.LLM.Model).
		Msg("Starting Invoice Extractor API")

	metrics := monitoring.NewMetrics()

	a, err := app.Build(context.Background(), cfg, logger, metrics)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize pipeline")
	}

	router := NewRouter(RouterDeps{
		Logger:         logger,
		Runner:         a.Coordinator,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Metrics:        metrics,
		MetricsHandler: metrics.Handler(),
		Status: handlers.StatusInfo{
			Version:            version,
			CompletionReady:    cfg.LLM.APIKey != "",
			StoreReady:         cfg.StoreConfigured(),
			StoreBackend:       cfg.Store.Backend,
			AirtableBaseID:     cfg.Store.Airtable.BaseID,
			AirtableTable:      cfg.Store.Airtable.TableName,
			PDFSupport:         a.Coordinator.RasterizerEnabled(),
			MaxDetachedRunners: cfg.Pipeline.MaxDetachedRuns,
		},
	})

	addr := cfg.Addr()
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	// Wait for interrupt or error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Server error")
		}
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}

	// Detached runs finish before the store is released
	if err := a.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to release resources")
	}

	logger.Info().Msg("Server stopped")
}

// Package main provides the API router setup.
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kvsharma13/Invoice-extractor/cmd/invoice-extractor-api/handlers"
	"github.com/kvsharma13/Invoice-extractor/cmd/invoice-extractor-api/middleware"
	"github.com/kvsharma13/Invoice-extractor/internal/observability"
)

// RouterDeps holds what the router needs to serve requests.
type RouterDeps struct {
	Logger         *observability.Logger
	Runner         handlers.Runner
	Status         handlers.StatusInfo
	MaxUploadBytes int64
	Metrics        middleware.HTTPObserver
	MetricsHandler http.Handler
}

// NewRouter creates the main API router with all routes configured.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	statusHandler := handlers.NewStatusHandler(deps.Status)
	invoiceHandler := handlers.NewInvoiceHandler(deps.Logger, deps.Runner, deps.MaxUploadBytes)

	r.Get("/", statusHandler.Home)
	r.Get("/health", statusHandler.Health)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Post("/webhook", invoiceHandler.Webhook)
	r.Post("/webhook/async", invoiceHandler.WebhookAsync)

	return r
}

// Package extractor is the public entry point for extracting invoices outside
// the HTTP server.
package extractor

import (
	"context"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/kvsharma13/Invoice-extractor/internal/app"
	"github.com/kvsharma13/Invoice-extractor/internal/config"
	"github.com/kvsharma13/Invoice-extractor/internal/domain"
	"github.com/kvsharma13/Invoice-extractor/internal/observability"
	"github.com/kvsharma13/Invoice-extractor/internal/pipeline"
)

// Re-export types for public API
type (
	Config   = config.Config
	Invoice  = domain.ExtractedInvoice
	LineItem = domain.LineItem
	Result   = pipeline.Result
	Error    = domain.DomainError
)

// DefaultConfig returns the default configuration. Credentials still have to
// be filled in.
func DefaultConfig() *Config {
	return config.DefaultConfig()
}

// Client is the main entry point for the invoice extractor library
type Client struct {
	app *app.App
}

// NewClient creates a client configured from .env and the environment.
func NewClient() (*Client, error) {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	cfg, err := config.Load("")
	if err != nil {
		return nil, domain.ConfigError("load config", err)
	}
	return NewClientWithConfig(cfg)
}

// NewClientWithConfig creates a client from an explicit configuration.
func NewClientWithConfig(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, domain.ConfigError("config is required", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, domain.ConfigError("invalid config", err)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	a, err := app.Build(context.Background(), cfg, logger, nil)
	if err != nil {
		return nil, err
	}
	return &Client{app: a}, nil
}

// ProcessFile extracts and stores the invoice in a local image or PDF.
func (c *Client) ProcessFile(ctx context.Context, path string) (*Result, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.AcquisitionError("read input file", err)
	}
	return c.app.Coordinator.RunInline(ctx, pipeline.Submission{
		Filename: filepath.Base(path),
		Content:  content,
	})
}

// ProcessURL downloads, extracts and stores the invoice at rawURL.
func (c *Client) ProcessURL(ctx context.Context, rawURL string) (*Result, error) {
	return c.app.Coordinator.RunInline(ctx, pipeline.Submission{URL: rawURL})
}

// Close releases store connections.
func (c *Client) Close() error {
	return c.app.Close()
}

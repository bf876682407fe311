// Package app wires configuration into the long-lived pipeline capabilities
// shared by the API server and the CLI.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/kvsharma13/Invoice-extractor/internal/config"
	"github.com/kvsharma13/Invoice-extractor/internal/domain"
	"github.com/kvsharma13/Invoice-extractor/internal/extract"
	"github.com/kvsharma13/Invoice-extractor/internal/ingest"
	"github.com/kvsharma13/Invoice-extractor/internal/llm"
	"github.com/kvsharma13/Invoice-extractor/internal/observability"
	"github.com/kvsharma13/Invoice-extractor/internal/pdf"
	"github.com/kvsharma13/Invoice-extractor/internal/pipeline"
	"github.com/kvsharma13/Invoice-extractor/internal/store"
)

// App holds the process-scoped service handles.
type App struct {
	Config      *config.Config
	Coordinator *pipeline.Coordinator

	closers []io.Closer
}

// Build constructs every capability from cfg. recorder may be nil.
func Build(ctx context.Context, cfg *config.Config, logger *observability.Logger, recorder pipeline.Recorder) (*App, error) {
	completer, err := llm.NewClient(llm.Config{
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
	}, logger)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg}

	recordStore, err := a.buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var rasterizer domain.Rasterizer
	if cfg.PDF.Enabled {
		r, err := pdf.NewRasterizer(pdf.Config{DPI: cfg.PDF.DPI, Quality: cfg.PDF.Quality}, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		rasterizer = r
	}

	coord, err := pipeline.NewCoordinator(pipeline.Deps{
		Normalizer: ingest.NewNormalizer(ingest.Config{
			FetchTimeout: cfg.Fetch.Timeout,
			MaxBytes:     cfg.MaxUploadBytes(),
		}, logger),
		Rasterizer: rasterizer,
		Extractor:  extract.NewService(completer, logger),
		Persister:  store.NewAdapter(recordStore, logger),
		Logger:     logger,
		Recorder:   recorder,
	}, pipeline.Config{
		TempDir:         cfg.Pipeline.TempDir,
		MaxDetachedRuns: cfg.Pipeline.MaxDetachedRuns,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Coordinator = coord

	logger.Info().
		Str("store_backend", cfg.Store.Backend).
		Str("model", completer.Model()).
		Bool("pdf_support", rasterizer != nil).
		Msg("Pipeline ready")

	return a, nil
}

func (a *App) buildStore(ctx context.Context, cfg *config.Config) (domain.RecordStore, error) {
	switch cfg.Store.Backend {
	case config.BackendAirtable:
		return store.NewAirtable(store.AirtableConfig{
			APIKey:    cfg.Store.Airtable.APIKey,
			BaseID:    cfg.Store.Airtable.BaseID,
			TableName: cfg.Store.Airtable.TableName,
		})
	case config.BackendPostgres:
		pg, err := store.NewPostgres(ctx, cfg.Store.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pg)
		return pg, nil
	default:
		return nil, domain.ConfigError(fmt.Sprintf("unknown store backend %q", cfg.Store.Backend), nil)
	}
}

// Close waits for detached runs and releases store connections.
func (a *App) Close() error {
	if a.Coordinator != nil {
		a.Coordinator.Wait()
	}
	var firstErr error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

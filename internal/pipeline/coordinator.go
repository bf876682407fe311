// Package pipeline composes normalization, rasterization, extraction and
// persistence into one run, executed inline or detached.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/kvsharma13/Invoice-extractor/internal/domain"
	"github.com/kvsharma13/Invoice-extractor/internal/janitor"
	"github.com/kvsharma13/Invoice-extractor/internal/observability"
)

// Stage names a step of a run.
type Stage string

const (
	StageAcquiring   Stage = "acquiring"
	StageRasterizing Stage = "rasterizing"
	StageExtracting  Stage = "extracting"
	StagePersisting  Stage = "persisting"
	StageDone        Stage = "done"
)

// Mode says how a run was executed.
type Mode string

const (
	ModeInline   Mode = "inline"
	ModeDetached Mode = "detached"
)

const defaultMaxDetachedRuns = 8

// StageError is the Failed(stage, cause) outcome of a run.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Submission is the caller's input: either uploaded content or a URL.
type Submission struct {
	Filename string
	Content  []byte
	URL      string
}

// HasInput reports whether anything was submitted.
func (s Submission) HasInput() bool {
	return s.Content != nil || s.URL != ""
}

// Result is the outcome of a successful run.
type Result struct {
	RunID    string
	Mode     Mode
	Document *domain.InvoiceDocument
	Invoice  *domain.ExtractedInvoice
	RecordID string
	Duration time.Duration
}

// Recorder receives run outcomes. monitoring.Metrics satisfies it.
type Recorder interface {
	ObserveRun(mode, stage, outcome string, d time.Duration)
	AddDetachedInflight(delta float64)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRun(string, string, string, time.Duration) {}
func (nopRecorder) AddDetachedInflight(float64)                      {}

// Deps are the capabilities a coordinator composes. Rasterizer may be nil, in
// which case PDF submissions fail at the rasterizing stage.
type Deps struct {
	Normalizer domain.Normalizer
	Rasterizer domain.Rasterizer
	Extractor  domain.Extractor
	Persister  domain.Persister
	Logger     *observability.Logger
	Recorder   Recorder
}

// Config holds coordinator settings.
type Config struct {
	TempDir         string
	MaxDetachedRuns int64
}

// Coordinator runs the invoice pipeline
type Coordinator struct {
	deps   Deps
	cfg    Config
	logger *observability.Logger

	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// NewCoordinator creates a coordinator from explicitly constructed capabilities.
func NewCoordinator(deps Deps, cfg Config) (*Coordinator, error) {
	var errs []error
	if deps.Normalizer == nil {
		errs = append(errs, errors.New("normalizer is required"))
	}
	if deps.Extractor == nil {
		errs = append(errs, errors.New("extractor is required"))
	}
	if deps.Persister == nil {
		errs = append(errs, errors.New("persister is required"))
	}
	if len(errs) > 0 {
		return nil, domain.ConfigError("invalid pipeline dependencies", errors.Join(errs...))
	}

	if deps.Logger == nil {
		deps.Logger = observability.Nop()
	}
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	if cfg.MaxDetachedRuns <= 0 {
		cfg.MaxDetachedRuns = defaultMaxDetachedRuns
	}

	return &Coordinator{
		deps:   deps,
		cfg:    cfg,
		logger: deps.Logger.WithComponent("pipeline"),
		sem:    semaphore.NewWeighted(cfg.MaxDetachedRuns),
	}, nil
}

// RasterizerEnabled reports whether PDF documents can be processed.
func (c *Coordinator) RasterizerEnabled() bool {
	return c.deps.Rasterizer != nil
}

// RunInline executes the pipeline on the caller's goroutine. The first failing
// stage aborts the run and is returned as a *StageError.
func (c *Coordinator) RunInline(ctx context.Context, sub Submission) (*Result, error) {
	return c.run(ctx, uuid.NewString(), ModeInline, sub)
}

// RunDetached starts the pipeline in the background and returns its run id at
// once. The run is not tied to ctx's cancellation; its failures are only
// logged and counted.
func (c *Coordinator) RunDetached(ctx context.Context, sub Submission) string {
	runID := uuid.NewString()
	ctx = context.WithoutCancel(ctx)

	c.wg.Add(1)
	c.deps.Recorder.AddDetachedInflight(1)

	go func() {
		defer c.wg.Done()
		defer c.deps.Recorder.AddDetachedInflight(-1)

		// Never fails: ctx has no cancellation
		_ = c.sem.Acquire(ctx, 1)
		defer c.sem.Release(1)

		_, _ = c.run(ctx, runID, ModeDetached, sub)
	}()

	return runID
}

// Wait blocks until every detached run has finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) run(ctx context.Context, runID string, mode Mode, sub Submission) (res *Result, err error) {
	start := time.Now()
	log := c.logger.WithRun(runID)
	j := janitor.New(c.cfg.TempDir)
	stage := StageAcquiring

	defer func() {
		if r := recover(); r != nil {
			err = &StageError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
			res = nil
		}

		if cerr := j.Cleanup(); cerr != nil {
			log.Warn().Err(cerr).Msg("Failed to remove transient files")
		}

		elapsed := time.Since(start)
		if err != nil {
			var se *StageError
			if !errors.As(err, &se) {
				se = &StageError{Stage: stage, Err: err}
				err = se
			}
			c.deps.Recorder.ObserveRun(string(mode), string(se.Stage), "failed", elapsed)
			log.Error().
				Err(se.Err).
				Str("mode", string(mode)).
				Str("stage", string(se.Stage)).
				Str("error_type", string(domain.TypeOf(se.Err))).
				Dur("duration", elapsed).
				Msg("Run failed")
			return
		}

		res.Duration = elapsed
		c.deps.Recorder.ObserveRun(string(mode), string(StageDone), "succeeded", elapsed)
		log.Info().
			Str("mode", string(mode)).
			Str("record_id", res.RecordID).
			Dur("duration", elapsed).
			Msg("Run completed")
	}()

	fail := func(cause error) (*Result, error) {
		return nil, &StageError{Stage: stage, Err: cause}
	}

	log.Debug().Str("mode", string(mode)).Str("stage", string(stage)).Msg("Run started")

	doc, err := c.acquire(ctx, sub, j)
	if err != nil {
		return fail(err)
	}

	img := &domain.RasterImage{Path: doc.Path, Format: doc.Format}
	if !doc.Format.IsImage() {
		stage = StageRasterizing
		if c.deps.Rasterizer == nil {
			return fail(domain.RasterizationError("PDF support is not enabled", nil))
		}
		if img, err = c.deps.Rasterizer.Rasterize(ctx, doc, j); err != nil {
			return fail(err)
		}
	}

	stage = StageExtracting
	inv, err := c.deps.Extractor.Extract(ctx, img)
	if err != nil {
		return fail(err)
	}

	stage = StagePersisting
	recordID, err := c.deps.Persister.Persist(ctx, inv, doc.SourceURL)
	if err != nil {
		return fail(err)
	}

	stage = StageDone
	return &Result{
		RunID:    runID,
		Mode:     mode,
		Document: doc,
		Invoice:  inv,
		RecordID: recordID,
	}, nil
}

func (c *Coordinator) acquire(ctx context.Context, sub Submission, j *janitor.Janitor) (*domain.InvoiceDocument, error) {
	if !sub.HasInput() {
		return nil, domain.AcquisitionError("no input supplied", nil)
	}
	if sub.Content != nil {
		return c.deps.Normalizer.FromUpload(ctx, bytes.NewReader(sub.Content), sub.Filename, j)
	}
	return c.deps.Normalizer.FromURL(ctx, sub.URL, j)
}

// Package pdf renders the first page of a PDF invoice into a JPEG for vision
// analysis. Image inputs pass through untouched.
package pdf

import (
	"context"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"

	"github.com/kvsharma13/Invoice-extractor/internal/domain"
	"github.com/kvsharma13/Invoice-extractor/internal/observability"
)

const (
	// DefaultDPI renders at twice the PDF base resolution of 72 DPI.
	DefaultDPI     = 144.0
	DefaultQuality = 85
)

// Config holds rasterizer settings.
type Config struct {
	DPI     float64
	Quality int
}

// Rasterizer implements domain.Rasterizer using go-fitz
type Rasterizer struct {
	dpi       float64
	quality   int
	validator *Validator
	logger    *observability.Logger
}

var _ domain.Rasterizer = (*Rasterizer)(nil)

// NewRasterizer creates a rasterizer. Zero config values fall back to defaults.
func NewRasterizer(cfg Config, logger *observability.Logger) (*Rasterizer, error) {
	if cfg.DPI == 0 {
		cfg.DPI = DefaultDPI
	}
	if cfg.Quality == 0 {
		cfg.Quality = DefaultQuality
	}

	v := NewValidator()
	if err := v.ValidateDPI(cfg.DPI); err != nil {
		return nil, err
	}
	if err := v.ValidateQuality(cfg.Quality); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = observability.Nop()
	}

	return &Rasterizer{
		dpi:       cfg.DPI,
		quality:   cfg.Quality,
		validator: v,
		logger:    logger.WithComponent("rasterizer"),
	}, nil
}

// Rasterize returns the document itself when it is already an image. For a
// PDF it renders page one into a new transient JPEG registered with t.
func (r *Rasterizer) Rasterize(ctx context.Context, doc *domain.InvoiceDocument, t domain.Tracker) (*domain.RasterImage, error) {
	if err := r.validator.ValidateDocument(doc); err != nil {
		return nil, err
	}

	if doc.Format.IsImage() {
		return &domain.RasterImage{Path: doc.Path, Format: doc.Format}, nil
	}
	if doc.Format != domain.FormatPDF {
		return nil, domain.RasterizationError(fmt.Sprintf("unsupported format %q", doc.Format), nil)
	}

	select {
	case <-ctx.Done():
		return nil, domain.RasterizationError("rasterization cancelled", ctx.Err())
	default:
	}

	pdfDoc, err := fitz.New(doc.Path)
	if err != nil {
		return nil, domain.RasterizationError("failed to open PDF", err)
	}
	defer pdfDoc.Close()

	pageCount := pdfDoc.NumPage()
	if pageCount == 0 {
		return nil, domain.EmptyDocumentError("PDF has no pages", nil)
	}

	img, err := pdfDoc.ImageDPI(0, r.dpi)
	if err != nil {
		return nil, domain.RasterizationError("failed to render page 1", err)
	}

	out, err := t.CreateTemp("page-1-*.jpg")
	if err != nil {
		return nil, domain.RasterizationError("failed to create output file for page 1", err)
	}
	defer out.Close()

	if err := imaging.Encode(out, img, imaging.JPEG, imaging.JPEGQuality(r.quality)); err != nil {
		return nil, domain.RasterizationError("failed to encode page 1 as JPG", err)
	}

	bounds := img.Bounds()
	r.logger.Debug().
		Int("pages", pageCount).
		Int("width", bounds.Dx()).
		Int("height", bounds.Dy()).
		Msg("Rendered first page")

	return &domain.RasterImage{
		Path:   out.Name(),
		Format: domain.FormatJPG,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

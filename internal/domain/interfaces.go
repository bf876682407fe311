package domain

import (
	"context"
	"io"
	"os"
)

// Tracker hands out transient files that are removed when the owning run ends
type Tracker interface {
	CreateTemp(pattern string) (*os.File, error)
}

// Normalizer turns caller input into a local transient document
type Normalizer interface {
	FromUpload(ctx context.Context, r io.Reader, filename string, t Tracker) (*InvoiceDocument, error)
	FromURL(ctx context.Context, rawURL string, t Tracker) (*InvoiceDocument, error)
}

// Rasterizer converts a document into a single image; images pass through unchanged
type Rasterizer interface {
	Rasterize(ctx context.Context, doc *InvoiceDocument, t Tracker) (*RasterImage, error)
}

// Extractor derives a structured invoice from a raster image
type Extractor interface {
	Extract(ctx context.Context, img *RasterImage) (*ExtractedInvoice, error)
}

// Completer is the vision-capable AI completion capability
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// RecordStore creates rows in the external tabular store
type RecordStore interface {
	CreateRecord(ctx context.Context, rec PersistedRecord) (string, error)
}

// Persister maps an extracted invoice to a row and stores it
type Persister interface {
	Persist(ctx context.Context, inv *ExtractedInvoice, sourceURL string) (string, error)
}

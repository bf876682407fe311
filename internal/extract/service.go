package extract

import (
	"context"
	"encoding/base64"
	"os"
	"time"

	"github.com/kvsharma13/Invoice-extractor/internal/domain"
	"github.com/kvsharma13/Invoice-extractor/internal/observability"
)

// Service turns a raster image into a structured invoice through a vision
// completion capability
type Service struct {
	completer domain.Completer
	logger    *observability.Logger
}

var _ domain.Extractor = (*Service)(nil)

// NewService creates a new extraction service
func NewService(completer domain.Completer, logger *observability.Logger) *Service {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Service{
		completer: completer,
		logger:    logger.WithComponent("extract"),
	}
}

// Extract encodes the image, sends one completion request and parses the reply.
func (s *Service) Extract(ctx context.Context, img *domain.RasterImage) (*domain.ExtractedInvoice, error) {
	if img == nil {
		return nil, domain.RasterizationError("no raster image supplied", nil)
	}

	imageURL, err := dataURL(img)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	text, err := s.completer.Complete(ctx, domain.CompletionRequest{
		Prompt:   buildPrompt(),
		ImageURL: imageURL,
	})
	if err != nil {
		if domain.TypeOf(err) == "" {
			err = domain.ServiceError("completion call failed", err)
		}
		return nil, err
	}

	inv, err := ParseInvoice(text)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Int("response_length", len(text)).
			Msg("Could not parse completion response")
		return nil, err
	}

	s.logger.Info().
		Dur("latency", time.Since(start)).
		Int("line_items", len(inv.LineItems)).
		Bool("has_total", inv.TotalAmount != nil).
		Msg("Invoice extracted")

	return inv, nil
}

// dataURL reads the image and returns it as a base64 data URL tagged with its MIME type.
func dataURL(img *domain.RasterImage) (string, error) {
	data, err := os.ReadFile(img.Path)
	if err != nil {
		return "", domain.RasterizationError("failed to read raster image", err)
	}
	return "data:" + img.Format.MIMEType() + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

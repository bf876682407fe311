package pdf

import (
	"fmt"
	"os"
	"strings"

	"github.com/kvsharma13/Invoice-extractor/internal/domain"
)

// Validator provides input validation for documents handed to the rasterizer
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateDocument checks that the document's backing file is present and readable.
func (v *Validator) ValidateDocument(doc *domain.InvoiceDocument) error {
	if doc == nil {
		return domain.RasterizationError("no document supplied", nil)
	}
	if strings.TrimSpace(doc.Path) == "" {
		return domain.RasterizationError("document has no backing file", nil)
	}

	info, err := os.Stat(doc.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.RasterizationError(fmt.Sprintf("file does not exist: %s", doc.Path), err)
		}
		return domain.RasterizationError(fmt.Sprintf("cannot access file: %s", doc.Path), err)
	}

	if info.IsDir() {
		return domain.RasterizationError(fmt.Sprintf("path is a directory, not a file: %s", doc.Path), nil)
	}

	// A zero-byte download or upload has nothing to render
	if info.Size() == 0 {
		return domain.EmptyDocumentError("document is empty", nil)
	}

	return nil
}

// ValidateQuality validates the JPEG quality parameter
func (v *Validator) ValidateQuality(quality int) error {
	if quality < 1 || quality > 100 {
		return domain.ConfigError(fmt.Sprintf("quality must be between 1 and 100, got %d", quality), nil)
	}
	return nil
}

// ValidateDPI validates the render resolution
func (v *Validator) ValidateDPI(dpi float64) error {
	if dpi < 36 || dpi > 600 {
		return domain.ConfigError(fmt.Sprintf("dpi must be between 36 and 600, got %g", dpi), nil)
	}
	return nil
}

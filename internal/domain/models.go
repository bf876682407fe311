package domain

import (
	"strings"
)

// Format is the detected or declared kind of a submitted document.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPG  Format = "jpg"
	FormatJPEG Format = "jpeg"
	FormatPDF  Format = "pdf"
	FormatGIF  Format = "gif"
	FormatWEBP Format = "webp"
)

// DefaultFormat is assumed when neither a filename nor a remote response says otherwise.
const DefaultFormat = FormatJPG

// SupportedFormats lists every format the pipeline accepts.
var SupportedFormats = []Format{FormatPNG, FormatJPG, FormatJPEG, FormatPDF, FormatGIF, FormatWEBP}

// ParseFormat maps a file extension (with or without the leading dot, any case)
// to a supported Format.
func ParseFormat(ext string) (Format, bool) {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	for _, f := range SupportedFormats {
		if string(f) == ext {
			return f, true
		}
	}
	return "", false
}

// IsImage reports whether the format can be sent to the vision service as-is.
func (f Format) IsImage() bool {
	switch f {
	case FormatPNG, FormatJPG, FormatJPEG, FormatGIF, FormatWEBP:
		return true
	default:
		return false
	}
}

// MIMEType returns the image MIME type for the format, falling back to JPEG.
func (f Format) MIMEType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatGIF:
		return "image/gif"
	case FormatWEBP:
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// Origin says how a document reached the service.
type Origin string

const (
	OriginUpload Origin = "upload"
	OriginURL    Origin = "url"
)

// InvoiceDocument represents the raw submitted artifact backed by a transient file
type InvoiceDocument struct {
	Origin    Origin
	Format    Format
	Size      int64
	SourceURL string // set only for OriginURL
	Path      string // transient file, removed when the run ends
}

// RasterImage is a single-frame image ready for vision analysis
type RasterImage struct {
	Path   string
	Format Format
	Width  int
	Height int
}

// LineItem is one row of an invoice's item table
type LineItem struct {
	Description *string  `json:"description"`
	Quantity    *float64 `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	Amount      *float64 `json:"amount"`
}

// ExtractedInvoice contains the structured data extracted from an invoice.
// A nil field means the value could not be determined.
type ExtractedInvoice struct {
	InvoiceNumber   *string    `json:"invoice_number"`
	InvoiceDate     *string    `json:"invoice_date"` // YYYY-MM-DD
	VendorName      *string    `json:"vendor_name"`
	VendorAddress   *string    `json:"vendor_address"`
	CustomerName    *string    `json:"customer_name"`
	CustomerAddress *string    `json:"customer_address"`
	Subtotal        *float64   `json:"subtotal"`
	Tax             *float64   `json:"tax"`
	TotalAmount     *float64   `json:"total_amount"`
	Currency        *string    `json:"currency"`
	LineItems       []LineItem `json:"line_items"`
}

// PersistedRecord is the row written to the tabular store, keyed by column name
type PersistedRecord struct {
	Fields map[string]any
}

// CompletionRequest is a single vision prompt sent to the completion service
type CompletionRequest struct {
	Prompt   string
	ImageURL string // data URL carrying the base64 image
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

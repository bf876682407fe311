// Package ingest turns uploaded bytes or remote URLs into local transient
// documents with a validated format tag.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/kvsharma13/Invoice-extractor/internal/domain"
	"github.com/kvsharma13/Invoice-extractor/internal/observability"
)

const (
	defaultFetchTimeout = 30 * time.Second
	defaultMaxBytes     = 20 << 20
)

var pdfMagic = []byte("%PDF-")

// Config holds normalizer settings.
type Config struct {
	FetchTimeout time.Duration
	MaxBytes     int64
	HTTPClient   *http.Client
}

// Normalizer implements domain.Normalizer.
type Normalizer struct {
	httpClient   *http.Client
	fetchTimeout time.Duration
	maxBytes     int64
	logger       *observability.Logger
}

var _ domain.Normalizer = (*Normalizer)(nil)

// NewNormalizer creates a normalizer, applying defaults for zero config values.
func NewNormalizer(cfg Config, logger *observability.Logger) *Normalizer {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if logger == nil {
		logger = observability.Nop()
	}
	return &Normalizer{
		httpClient:   cfg.HTTPClient,
		fetchTimeout: cfg.FetchTimeout,
		maxBytes:     cfg.MaxBytes,
		logger:       logger.WithComponent("ingest"),
	}
}

// AllowedExtension reports whether filename's extension is one the service
// accepts. A filename without an extension is allowed and treated as jpg.
func AllowedExtension(filename string) bool {
	ext := filepath.Ext(filename)
	if ext == "" || ext == "." {
		return true
	}
	_, ok := domain.ParseFormat(ext)
	return ok
}

// FormatFromFilename derives the format tag from filename's extension.
func FormatFromFilename(filename string) (domain.Format, error) {
	ext := filepath.Ext(filename)
	if ext == "" || ext == "." {
		return domain.DefaultFormat, nil
	}
	format, ok := domain.ParseFormat(ext)
	if !ok {
		return "", domain.AcquisitionError(fmt.Sprintf("unsupported file type %q", strings.ToLower(ext)), nil)
	}
	return format, nil
}

// FromUpload writes an uploaded stream to a transient file.
func (n *Normalizer) FromUpload(ctx context.Context, r io.Reader, filename string, t domain.Tracker) (*domain.InvoiceDocument, error) {
	if r == nil {
		return nil, domain.AcquisitionError("no input supplied", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.AcquisitionError("upload cancelled", err)
	}

	format, err := FormatFromFilename(filename)
	if err != nil {
		return nil, err
	}

	tmpPath, size, err := n.spool(r, format, t)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, domain.AcquisitionError("uploaded file is empty", nil)
	}

	n.logger.Debug().
		Str("filename", filename).
		Str("format", string(format)).
		Int64("size", size).
		Msg("Upload stored")

	return &domain.InvoiceDocument{
		Origin: domain.OriginUpload,
		Format: format,
		Size:   size,
		Path:   tmpPath,
	}, nil
}

// FromURL downloads rawURL into a transient file. The fetch is bounded by the
// configured timeout.
func (n *Normalizer) FromURL(ctx context.Context, rawURL string, t domain.Tracker) (*domain.InvoiceDocument, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, domain.AcquisitionError("no input supplied", nil)
	}

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, domain.AcquisitionError(fmt.Sprintf("invalid file URL %q", rawURL), err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, domain.AcquisitionError("failed to build fetch request", err)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, domain.AcquisitionError("failed to fetch document", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.AcquisitionError(fmt.Sprintf("fetch returned status %d", resp.StatusCode), nil)
	}

	body := bufio.NewReader(resp.Body)
	head, _ := body.Peek(len(pdfMagic))
	format := detectRemoteFormat(resp.Header.Get("Content-Type"), u, head)

	tmpPath, size, err := n.spool(body, format, t)
	if err != nil {
		return nil, err
	}

	n.logger.Debug().
		Str("url", rawURL).
		Str("content_type", resp.Header.Get("Content-Type")).
		Str("format", string(format)).
		Int64("size", size).
		Msg("Remote document fetched")

	return &domain.InvoiceDocument{
		Origin:    domain.OriginURL,
		Format:    format,
		Size:      size,
		SourceURL: rawURL,
		Path:      tmpPath,
	}, nil
}

// detectRemoteFormat applies the best-effort PDF heuristic: declared content
// type, then URL suffix, then the %PDF- magic. Everything else is treated as jpg.
func detectRemoteFormat(contentType string, u *url.URL, head []byte) domain.Format {
	if strings.Contains(strings.ToLower(contentType), "pdf") {
		return domain.FormatPDF
	}
	if strings.EqualFold(path.Ext(u.Path), ".pdf") {
		return domain.FormatPDF
	}
	if bytes.HasPrefix(head, pdfMagic) {
		return domain.FormatPDF
	}
	return domain.DefaultFormat
}

// spool copies r into a new transient file, enforcing the size limit.
func (n *Normalizer) spool(r io.Reader, format domain.Format, t domain.Tracker) (string, int64, error) {
	f, err := t.CreateTemp("invoice-*." + string(format))
	if err != nil {
		return "", 0, domain.AcquisitionError("failed to create transient file", err)
	}
	defer f.Close()

	size, err := io.Copy(f, io.LimitReader(r, n.maxBytes+1))
	if err != nil {
		return "", 0, domain.AcquisitionError("failed to read document", err)
	}
	if size > n.maxBytes {
		return "", 0, domain.AcquisitionError(fmt.Sprintf("document exceeds %d bytes", n.maxBytes), nil)
	}
	return f.Name(), size, nil
}

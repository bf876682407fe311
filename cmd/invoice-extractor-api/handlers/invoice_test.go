package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvsharma13/Invoice-extractor/internal/domain"
	"github.com/kvsharma13/Invoice-extractor/internal/extract"
	"github.com/kvsharma13/Invoice-extractor/internal/ingest"
	"github.com/kvsharma13/Invoice-extractor/internal/observability"
	"github.com/kvsharma13/Invoice-extractor/internal/pdf"
	"github.com/kvsharma13/Invoice-extractor/internal/pipeline"
	"github.com/kvsharma13/Invoice-extractor/internal/store"
	"github.com/kvsharma13/Invoice-extractor/internal/testutil"
)

const invoiceJSON = "```json\n" + `{
  "invoice_number": "INV-001",
  "invoice_date": "2024-03-15",
  "vendor_name": "Acme Supplies",
  "total_amount": 120.5,
  "currency": "EUR",
  "line_items": [{"description": "Widgets", "quantity": 2, "unit_price": 50, "amount": 100}]
}` + "\n```"

type stubCompleter struct {
	reply string
	err   error
}

func (s *stubCompleter) Complete(context.Context, domain.CompletionRequest) (string, error) {
	return s.reply, s.err
}

type memoryStore struct {
	mu   sync.Mutex
	rows []domain.PersistedRecord
}

func (m *memoryStore) CreateRecord(_ context.Context, rec domain.PersistedRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, rec)
	return fmt.Sprintf("rec%d", len(m.rows)), nil
}

func (m *memoryStore) snapshot() []domain.PersistedRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.PersistedRecord(nil), m.rows...)
}

type harness struct {
	handler *InvoiceHandler
	coord   *pipeline.Coordinator
	store   *memoryStore
	tempDir string
}

func newHarness(t *testing.T, completer domain.Completer) *harness {
	t.Helper()

	rasterizer, err := pdf.NewRasterizer(pdf.Config{}, nil)
	require.NoError(t, err)

	rows := &memoryStore{}
	tempDir := t.TempDir()

	coord, err := pipeline.NewCoordinator(pipeline.Deps{
		Normalizer: ingest.NewNormalizer(ingest.Config{}, nil),
		Rasterizer: rasterizer,
		Extractor:  extract.NewService(completer, nil),
		Persister:  store.NewAdapter(rows, nil),
	}, pipeline.Config{TempDir: tempDir})
	require.NoError(t, err)

	return &harness{
		handler: NewInvoiceHandler(observability.Nop(), coord, 20<<20),
		coord:   coord,
		store:   rows,
		tempDir: tempDir,
	}
}

func (h *harness) assertTempDirEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(h.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func uploadRequest(t *testing.T, path, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" || data != nil {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestWebhook_ImageUpload(t *testing.T) {
	h := newHarness(t, &stubCompleter{reply: invoiceJSON})

	rec := httptest.NewRecorder()
	h.handler.Webhook(rec, uploadRequest(t, "/webhook", "scan.jpg", testutil.JPEG(t, 40, 30)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "INV-001", body["invoice_number"])
	assert.Equal(t, "rec1", body["record_id"])
	assert.Equal(t, 120.5, body["total_amount"])
	assert.Equal(t, "INV-001", body["data"].(map[string]any)["invoice_number"])

	rows := h.store.snapshot()
	require.Len(t, rows, 1)
	assert.Equal(t, "INV-001", rows[0].Fields[store.ColInvoiceNumber])
	assert.NotContains(t, rows[0].Fields, store.ColSourceFileURL)
	h.assertTempDirEmpty(t)
}

func TestWebhookAsync_PDFFromURL(t *testing.T) {
	doc := testutil.PDF(testutil.PageSize{Width: 200, Height: 100})
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(doc)
	}))
	defer origin.Close()

	h := newHarness(t, &stubCompleter{reply: invoiceJSON})
	fileURL := origin.URL + "/files/invoice.pdf"

	rec := httptest.NewRecorder()
	h.handler.WebhookAsync(rec, jsonRequest("/webhook/async", `{"file_url":"`+fileURL+`"}`))

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Invoice received and is being processed", body["message"])
	assert.NotEmpty(t, body["run_id"])

	h.coord.Wait()

	rows := h.store.snapshot()
	require.Len(t, rows, 1)
	assert.Equal(t, fileURL, rows[0].Fields[store.ColSourceFileURL])
	assert.Equal(t, store.StatusProcessed, rows[0].Fields[store.ColStatus])
	h.assertTempDirEmpty(t)
}

func TestWebhook_AttachmentURLAlias(t *testing.T) {
	img := testutil.JPEG(t, 10, 10)
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(img)
	}))
	defer origin.Close()

	h := newHarness(t, &stubCompleter{reply: invoiceJSON})

	rec := httptest.NewRecorder()
	h.handler.Webhook(rec, jsonRequest("/webhook", `{"attachment_url":"`+origin.URL+`/a.jpg"}`))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rows := h.store.snapshot()
	require.Len(t, rows, 1)
	assert.Equal(t, origin.URL+"/a.jpg", rows[0].Fields[store.ColSourceFileURL])
}

func TestWebhook_MissingInput(t *testing.T) {
	tests := []struct {
		name    string
		req     func(t *testing.T, path string) *http.Request
		wantErr string
	}{
		{
			name: "empty multipart form",
			req: func(t *testing.T, path string) *http.Request {
				return uploadRequest(t, path, "", nil)
			},
			wantErr: "No file provided. Send file or file_url",
		},
		{
			name: "file part without filename",
			req: func(t *testing.T, path string) *http.Request {
				return uploadRequest(t, path, "", []byte("data"))
			},
			wantErr: "No file provided. Send file or file_url",
		},
		{
			name: "empty json object",
			req: func(_ *testing.T, path string) *http.Request {
				return jsonRequest(path, `{}`)
			},
			wantErr: "No file_url provided",
		},
		{
			name: "blank file_url",
			req: func(_ *testing.T, path string) *http.Request {
				return jsonRequest(path, `{"file_url":"   "}`)
			},
			wantErr: "No file_url provided",
		},
		{
			name: "no body",
			req: func(_ *testing.T, path string) *http.Request {
				return httptest.NewRequest(http.MethodPost, path, nil)
			},
			wantErr: "No file provided. Send file or file_url",
		},
		{
			name: "disallowed extension",
			req: func(t *testing.T, path string) *http.Request {
				return uploadRequest(t, path, "invoice.exe", []byte("MZ"))
			},
			wantErr: "File type not allowed",
		},
		{
			name: "empty upload",
			req: func(t *testing.T, path string) *http.Request {
				return uploadRequest(t, path, "scan.png", []byte{})
			},
			wantErr: "Uploaded file is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, &stubCompleter{reply: invoiceJSON})

			inline := httptest.NewRecorder()
			h.handler.Webhook(inline, tt.req(t, "/webhook"))
			assert.Equal(t, http.StatusBadRequest, inline.Code)
			assert.Equal(t, tt.wantErr, decode(t, inline)["error"])

			detached := httptest.NewRecorder()
			h.handler.WebhookAsync(detached, tt.req(t, "/webhook/async"))
			assert.Equal(t, http.StatusBadRequest, detached.Code)
			assert.Equal(t, false, decode(t, detached)["success"])

			h.coord.Wait()
			assert.Empty(t, h.store.snapshot())
		})
	}
}

func TestWebhook_CompletionFailure(t *testing.T) {
	h := newHarness(t, &stubCompleter{err: domain.ServiceError("completion API returned status 503", errors.New("unavailable"))})

	rec := httptest.NewRecorder()
	h.handler.Webhook(rec, uploadRequest(t, "/webhook", "scan.png", testutil.JPEG(t, 20, 20)))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "AI service request failed", body["error"])
	assert.Equal(t, string(pipeline.StageExtracting), body["stage"])

	assert.Empty(t, h.store.snapshot())
	h.assertTempDirEmpty(t)
}

func TestWebhook_UnparsableReply(t *testing.T) {
	h := newHarness(t, &stubCompleter{reply: "I could not read this invoice."})

	rec := httptest.NewRecorder()
	h.handler.Webhook(rec, uploadRequest(t, "/webhook", "scan.jpeg", testutil.JPEG(t, 20, 20)))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "could not parse AI response", decode(t, rec)["error"])
	assert.Empty(t, h.store.snapshot())
	h.assertTempDirEmpty(t)
}

func TestWebhook_UnreachableURL(t *testing.T) {
	origin := httptest.NewServer(http.NotFoundHandler())
	defer origin.Close()

	h := newHarness(t, &stubCompleter{reply: invoiceJSON})

	rec := httptest.NewRecorder()
	h.handler.Webhook(rec, jsonRequest("/webhook", `{"file_url":"`+origin.URL+`/missing.pdf"}`))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "failed to fetch document", body["error"])
	assert.Equal(t, string(pipeline.StageAcquiring), body["stage"])
	h.assertTempDirEmpty(t)
}

func TestWebhookAsync_FailureIsNotReported(t *testing.T) {
	h := newHarness(t, &stubCompleter{err: errors.New("boom")})

	rec := httptest.NewRecorder()
	h.handler.WebhookAsync(rec, uploadRequest(t, "/webhook/async", "scan.png", testutil.JPEG(t, 20, 20)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	h.coord.Wait()
	assert.Empty(t, h.store.snapshot())
	h.assertTempDirEmpty(t)
}

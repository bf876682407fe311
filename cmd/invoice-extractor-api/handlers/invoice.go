// Package handlers provides HTTP handlers for the invoice extractor API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/kvsharma13/Invoice-extractor/internal/domain"
	"github.com/kvsharma13/Invoice-extractor/internal/ingest"
	"github.com/kvsharma13/Invoice-extractor/internal/observability"
	"github.com/kvsharma13/Invoice-extractor/internal/pipeline"
)

const multipartMemory = 32 << 20

// Runner executes the invoice pipeline. *pipeline.Coordinator satisfies it.
type Runner interface {
	RunInline(ctx context.Context, sub pipeline.Submission) (*pipeline.Result, error)
	RunDetached(ctx context.Context, sub pipeline.Submission) string
}

// InvoiceHandler handles invoice submissions.
type InvoiceHandler struct {
	logger         *observability.Logger
	runner         Runner
	maxUploadBytes int64
}

// NewInvoiceHandler creates a new invoice handler.
func NewInvoiceHandler(logger *observability.Logger, runner Runner, maxUploadBytes int64) *InvoiceHandler {
	return &InvoiceHandler{
		logger:         logger.WithComponent("http"),
		runner:         runner,
		maxUploadBytes: maxUploadBytes,
	}
}

// SubmitURLRequestDTO is the JSON form of a submission.
type SubmitURLRequestDTO struct {
	FileURL       string `json:"file_url"`
	AttachmentURL string `json:"attachment_url,omitempty"`
}

// InvoiceResponseDTO is returned by the inline endpoint.
type InvoiceResponseDTO struct {
	Success       bool                     `json:"success"`
	Message       string                   `json:"message"`
	RunID         string                   `json:"run_id"`
	InvoiceNumber *string                  `json:"invoice_number"`
	TotalAmount   *float64                 `json:"total_amount"`
	Currency      *string                  `json:"currency"`
	RecordID      string                   `json:"record_id"`
	Data          *domain.ExtractedInvoice `json:"data"`
}

// AcceptedResponseDTO is returned by the detached endpoint.
type AcceptedResponseDTO struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	RunID   string `json:"run_id"`
}

// ErrorResponseDTO is returned for every failure.
type ErrorResponseDTO struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Stage   string `json:"stage,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Webhook handles POST /webhook: runs the pipeline and responds with the result.
func (h *InvoiceHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.readSubmission(w, r)
	if !ok {
		return
	}

	res, err := h.runner.RunInline(r.Context(), sub)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, InvoiceResponseDTO{
		Success:       true,
		Message:       "Invoice processed successfully",
		RunID:         res.RunID,
		InvoiceNumber: res.Invoice.InvoiceNumber,
		TotalAmount:   res.Invoice.TotalAmount,
		Currency:      res.Invoice.Currency,
		RecordID:      res.RecordID,
		Data:          res.Invoice,
	})
}

// WebhookAsync handles POST /webhook/async: acknowledges at once and runs the
// pipeline in the background.
func (h *InvoiceHandler) WebhookAsync(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.readSubmission(w, r)
	if !ok {
		return
	}

	runID := h.runner.RunDetached(r.Context(), sub)

	h.logger.Info().
		Str("run_id", runID).
		Bool("upload", sub.Content != nil).
		Msg("Detached run accepted")

	writeJSON(w, http.StatusAccepted, AcceptedResponseDTO{
		Success: true,
		Message: "Invoice received and is being processed",
		RunID:   runID,
	})
}

// readSubmission parses a multipart upload or a JSON URL body. On failure it
// writes a 400 response and returns false.
func (h *InvoiceHandler) readSubmission(w http.ResponseWriter, r *http.Request) (pipeline.Submission, bool) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartMemory)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid multipart form", err.Error())
			return pipeline.Submission{}, false
		}

		// A file part with an empty filename also reports ErrMissingFile
		file, header, err := r.FormFile("file")
		if errors.Is(err, http.ErrMissingFile) {
			h.writeError(w, http.StatusBadRequest, "No file provided. Send file or file_url", "")
			return pipeline.Submission{}, false
		}
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid file upload", err.Error())
			return pipeline.Submission{}, false
		}
		defer file.Close()

	if !ingest.AllowedExtension(header.Filename) {
			h.writeError(w, http.StatusBadRequest, "File type not allowed", header.Filename)
			return pipeline.Submission{}, false
		}
		if header.Size > h.maxUploadBytes {
			h.writeError(w, http.StatusBadRequest, "File too large", "")
			return pipeline.Submission{}, false
		}

		// Buffered so a detached run can outlive the request body
		content, err := io.ReadAll(file)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "failed to read upload", err.Error())
			return pipeline.Submission{}, false
		}
		if len(content) == 0 {
			h.writeError(w, http.StatusBadRequest, "Uploaded file is empty", header.Filename)
			return pipeline.Submission{}, false
		}
		return pipeline.Submission{Filename: header.Filename, Content: content}, true

	case mediaType == "application/json":
		var req SubmitURLRequestDTO
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return pipeline.Submission{}, false
		}
		fileURL := strings.TrimSpace(req.FileURL)
		if fileURL == "" {
			fileURL = strings.TrimSpace(req.AttachmentURL)
		}
		if fileURL == "" {
			h.writeError(w, http.StatusBadRequest, "No file_url provided", "")
			return pipeline.Submission{}, false
		}
		return pipeline.Submission{URL: fileURL}, true

	default:
		h.writeError(w, http.StatusBadRequest, "No file provided. Send file or file_url", "")
		return pipeline.Submission{}, false
	}
}

// writePipelineError maps a failed run to a 500 with a message per error kind.
func (h *InvoiceHandler) writePipelineError(w http.ResponseWriter, err error) {
	resp := ErrorResponseDTO{
		Success: false,
		Error:   errorMessage(err),
		Detail:  err.Error(),
	}
	var se *pipeline.StageError
	if errors.As(err, &se) {
		resp.Stage = string(se.Stage)
	}
	writeJSON(w, http.StatusInternalServerError, resp)
}

func errorMessage(err error) string {
	switch domain.TypeOf(err) {
	case domain.ErrorTypeAcquisition:
		return "failed to fetch document"
	case domain.ErrorTypeEmptyDocument:
		return "document is empty"
	case domain.ErrorTypeRasterization:
		return "document could not be rendered"
	case domain.ErrorTypeExtractionParse:
		return "could not parse AI response"
	case domain.ErrorTypeService:
		return "AI service request failed"
	case domain.ErrorTypePersistence:
		return "failed to save record"
	default:
		return "invoice processing failed"
	}
}

func (h *InvoiceHandler) writeError(w http.ResponseWriter, status int, message, detail string) {
	h.logger.Warn().Int("status", status).Str("error", message).Msg("Rejected submission")
	writeJSON(w, status, ErrorResponseDTO{Success: false, Error: message, Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

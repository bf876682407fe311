package handlers

import (
	"net/http"
	"time"
)

// StatusInfo is the configuration summary reported by the status endpoints.
type StatusInfo struct {
	Version            string
	CompletionReady    bool
	StoreReady         bool
	StoreBackend       string
	AirtableBaseID     string
	AirtableTable      string
	PDFSupport         bool
	MaxDetachedRunners int64
}

// StatusHandler serves service info and health.
type StatusHandler struct {
	info StatusInfo
	now  func() time.Time
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(info StatusInfo) *StatusHandler {
	return &StatusHandler{info: info, now: time.Now}
}

// Home handles GET /.
func (h *StatusHandler) Home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "active",
		"message": "Invoice Extractor API",
		"version": h.info.Version,
		"endpoints": map[string]string{
			"/webhook":       "POST - Extract an invoice and return the record",
			"/webhook/async": "POST - Accept an invoice and process it in the background",
			"/health":        "GET - Health check",
			"/metrics":       "GET - Prometheus metrics",
		},
	})
}

// Health handles GET /health.
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	baseID := h.info.AirtableBaseID
	if baseID == "" {
		baseID = "not_configured"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":              "healthy",
		"timestamp":           h.now().Format(time.RFC3339),
		"openai_configured":   h.info.CompletionReady,
		"airtable_configured": h.info.StoreReady,
		"store_backend":       h.info.StoreBackend,
		"base_id":             baseID,
		"table":               h.info.AirtableTable,
		"pdf_support":         h.info.PDFSupport,
		"max_detached_runs":   h.info.MaxDetachedRunners,
	})
}

package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvsharma13/Invoice-extractor/internal/domain"
)

func TestAirtable_CreateRecord(t *testing.T) {
	var got struct {
		Records []struct {
			Fields map[string]any `json:"fields"`
		} `json:"records"`
	}
	var calls int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.Contains(r.URL.Path, "appTEST"), r.URL.Path)
		assert.Equal(t, "Bearer key-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"records": [{"id": "recABC123", "createdTime": "2024-03-15T10:00:00.000Z", "fields": {}}]}`))
	}))
	defer srv.Close()

	at, err := NewAirtable(AirtableConfig{APIKey: "key-test", BaseID: "appTEST", BaseURL: srv.URL + "/v0/"})
	require.NoError(t, err)

	rec := BuildRecord(&domain.ExtractedInvoice{InvoiceNumber: domain.Ptr("INV-001")}, "https://x/inv.pdf")
	id, err := at.CreateRecord(context.Background(), rec)
	require.NoError(t, err)

	assert.Equal(t, "recABC123", id)
	assert.Equal(t, 1, calls)
	require.Len(t, got.Records, 1)
	assert.Equal(t, "INV-001", got.Records[0].Fields[ColInvoiceNumber])
	assert.Equal(t, "https://x/inv.pdf", got.Records[0].Fields[ColSourceFileURL])
	assert.Equal(t, StatusProcessed, got.Records[0].Fields[ColStatus])
}

func TestAirtable_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error": {"type": "UNKNOWN_FIELD_NAME", "message": "Unknown field name: \"Vendor Name\""}}`))
	}))
	defer srv.Close()

	at, err := NewAirtable(AirtableConfig{APIKey: "key-test", BaseID: "appTEST", BaseURL: srv.URL + "/v0/"})
	require.NoError(t, err)

	_, err = at.CreateRecord(context.Background(), BuildRecord(&domain.ExtractedInvoice{}, ""))
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypePersistence))
}

func TestNewAirtable_RequiresCredentials(t *testing.T) {
	_, err := NewAirtable(AirtableConfig{BaseID: "appX"})
	assert.True(t, domain.IsType(err, domain.ErrorTypeConfig))

	_, err = NewAirtable(AirtableConfig{APIKey: "k"})
	assert.True(t, domain.IsType(err, domain.ErrorTypeConfig))
}

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvsharma13/Invoice-extractor/internal/domain"
)

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestBuildRecord_OnlyPresentFields(t *testing.T) {
	inv := &domain.ExtractedInvoice{
		InvoiceNumber: domain.Ptr("INV-001"),
		TotalAmount:   domain.Ptr(120.50),
		Currency:      domain.Ptr("USD"),
	}

	rec := BuildRecord(inv, "")

	assert.ElementsMatch(t,
		[]string{ColInvoiceNumber, ColTotalAmount, ColCurrency, ColLineItems, ColStatus},
		keys(rec.Fields))
	assert.Equal(t, "INV-001", rec.Fields[ColInvoiceNumber])
	assert.Equal(t, 120.50, rec.Fields[ColTotalAmount])
	assert.Equal(t, "", rec.Fields[ColLineItems])
	assert.Equal(t, StatusProcessed, rec.Fields[ColStatus])
}

func TestBuildRecord_SourceURL(t *testing.T) {
	rec := BuildRecord(&domain.ExtractedInvoice{}, "https://files.example.com/inv.pdf")

	assert.ElementsMatch(t, []string{ColLineItems, ColStatus, ColSourceFileURL}, keys(rec.Fields))
	assert.Equal(t, "https://files.example.com/inv.pdf", rec.Fields[ColSourceFileURL])
}

func TestBuildRecord_AllFields(t *testing.T) {
	inv := &domain.ExtractedInvoice{
		InvoiceNumber:   domain.Ptr("A"),
		InvoiceDate:     domain.Ptr("2024-01-02"),
		VendorName:      domain.Ptr("V"),
		VendorAddress:   domain.Ptr("VA"),
		CustomerName:    domain.Ptr("C"),
		CustomerAddress: domain.Ptr("CA"),
		Subtotal:        domain.Ptr(1.0),
		Tax:             domain.Ptr(0.0),
		TotalAmount:     domain.Ptr(1.0),
		Currency:        domain.Ptr("EUR"),
	}

	rec := BuildRecord(inv, "https://x")
	assert.Len(t, rec.Fields, 13)
	assert.Equal(t, 0.0, rec.Fields[ColTax], "zero is a present value")
}

func TestFormatLineItems(t *testing.T) {
	items := []domain.LineItem{
		{Description: domain.Ptr("Widgets"), Quantity: domain.Ptr(2.0), UnitPrice: domain.Ptr(50.0), Amount: domain.Ptr(100.0)},
		{Description: domain.Ptr("Shipping"), Amount: domain.Ptr(20.5)},
		{},
	}

	want := "Widgets – Qty: 2 × 50 = 100\n" +
		"Shipping – Qty: 0 × 0 = 20.5\n" +
		"N/A – Qty: 0 × 0 = 0"
	assert.Equal(t, want, FormatLineItems(items))
	assert.Equal(t, "", FormatLineItems(nil))
}

type recordingStore struct {
	records []domain.PersistedRecord
	id      string
	err     error
}

func (s *recordingStore) CreateRecord(_ context.Context, rec domain.PersistedRecord) (string, error) {
	s.records = append(s.records, rec)
	return s.id, s.err
}

func TestAdapter_Persist(t *testing.T) {
	rs := &recordingStore{id: "rec123"}
	id, err := NewAdapter(rs, nil).Persist(context.Background(), &domain.ExtractedInvoice{InvoiceNumber: domain.Ptr("INV-9")}, "")
	require.NoError(t, err)

	assert.Equal(t, "rec123", id)
	require.Len(t, rs.records, 1, "exactly one write per invoice")
	assert.Equal(t, "INV-9", rs.records[0].Fields[ColInvoiceNumber])
}

func TestAdapter_PersistWrapsStoreErrors(t *testing.T) {
	rs := &recordingStore{err: errors.New("rate limited")}
	_, err := NewAdapter(rs, nil).Persist(context.Background(), &domain.ExtractedInvoice{}, "")

	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypePersistence))
}

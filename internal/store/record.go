// Package store maps extracted invoices to store rows and writes them to a
// tabular backend.
package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kvsharma13/Invoice-extractor/internal/domain"
	"github.com/kvsharma13/Invoice-extractor/internal/observability"
)

// Column names of the invoice table.
const (
	ColInvoiceNumber   = "Invoice Number"
	ColInvoiceDate     = "Invoice Date"
	ColVendorName      = "Vendor Name"
	ColVendorAddress   = "Vendor Address"
	ColCustomerName    = "Customer Name"
	ColCustomerAddress = "Customer Address"
	ColSubtotal        = "Subtotal"
	ColTax             = "Tax"
	ColTotalAmount     = "Total Amount"
	ColCurrency        = "Currency"
	ColLineItems       = "Line Items"
	ColSourceFileURL   = "Source File URL"
	ColStatus          = "Status"
)

// StatusProcessed marks every row this service creates.
const StatusProcessed = "Processed"

// BuildRecord projects inv into store columns. Absent top-level fields are
// omitted. Line Items and Status are always written, Source File URL only when
// sourceURL is set.
func BuildRecord(inv *domain.ExtractedInvoice, sourceURL string) domain.PersistedRecord {
	fields := make(map[string]any, 13)

	putString(fields, ColInvoiceNumber, inv.InvoiceNumber)
	putString(fields, ColInvoiceDate, inv.InvoiceDate)
	putString(fields, ColVendorName, inv.VendorName)
	putString(fields, ColVendorAddress, inv.VendorAddress)
	putString(fields, ColCustomerName, inv.CustomerName)
	putString(fields, ColCustomerAddress, inv.CustomerAddress)
	putNumber(fields, ColSubtotal, inv.Subtotal)
	putNumber(fields, ColTax, inv.Tax)
	putNumber(fields, ColTotalAmount, inv.TotalAmount)
	putString(fields, ColCurrency, inv.Currency)

	fields[ColLineItems] = FormatLineItems(inv.LineItems)
	fields[ColStatus] = StatusProcessed
	if sourceURL != "" {
		fields[ColSourceFileURL] = sourceURL
	}

	return domain.PersistedRecord{Fields: fields}
}

func putString(fields map[string]any, col string, v *string) {
	if v != nil {
		fields[col] = *v
	}
}

func putNumber(fields map[string]any, col string, v *float64) {
	if v != nil {
		fields[col] = *v
	}
}

// FormatLineItems renders one line per item, in order. Missing sub-fields are
// rendered as placeholders so no item is ever dropped.
func FormatLineItems(items []domain.LineItem) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		desc := "N/A"
		if item.Description != nil {
			desc = *item.Description
		}
		lines = append(lines, fmt.Sprintf("%s – Qty: %s × %s = %s",
			desc,
			formatNumber(item.Quantity),
			formatNumber(item.UnitPrice),
			formatNumber(item.Amount),
		))
	}
	return strings.Join(lines, "\n")
}

func formatNumber(v *float64) string {
	if v == nil {
		return "0"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// Adapter implements domain.Persister on top of a RecordStore
type Adapter struct {
	store  domain.RecordStore
	logger *observability.Logger
}

var _ domain.Persister = (*Adapter)(nil)

// NewAdapter creates a persistence adapter writing to rs.
func NewAdapter(rs domain.RecordStore, logger *observability.Logger) *Adapter {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Adapter{store: rs, logger: logger.WithComponent("store")}
}

// Persist issues exactly one row-creation call and returns the store-assigned id.
func (a *Adapter) Persist(ctx context.Context, inv *domain.ExtractedInvoice, sourceURL string) (string, error) {
	if inv == nil {
		return "", domain.PersistenceError("no invoice to persist", nil)
	}

	rec := BuildRecord(inv, sourceURL)
	id, err := a.store.CreateRecord(ctx, rec)
	if err != nil {
		if domain.TypeOf(err) == "" {
			err = domain.PersistenceError("failed to create record", err)
		}
		return "", err
	}

	a.logger.Info().
		Str("record_id", id).
		Int("columns", len(rec.Fields)).
		Msg("Record created")

	return id, nil
}

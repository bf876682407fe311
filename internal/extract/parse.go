package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/kvsharma13/Invoice-extractor/internal/domain"
)

const fence = "```"

// StripCodeFence returns the body of the first ```json fenced block, or of the
// first unlabeled ``` block when there is no json-labeled one. Text without a
// fence is returned trimmed.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)

	if i := strings.Index(text, fence+"json"); i >= 0 {
		return closeFence(text[i+len(fence)+len("json"):])
	}

	if i := strings.Index(text, fence); i >= 0 {
		body := text[i+len(fence):]
		// Some models label the block with another language tag
		if nl := strings.IndexByte(body, '\n'); nl > 0 && isLabel(body[:nl]) {
			body = body[nl+1:]
		}
		return closeFence(body)
	}

	return text
}

func closeFence(body string) string {
	if end := strings.Index(body, fence); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

func isLabel(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// ParseInvoice strips any code fence from text and decodes the payload into
// an ExtractedInvoice. Shape is normalized here so downstream code never
// re-checks it.
func ParseInvoice(text string) (*domain.ExtractedInvoice, error) {
	payload := StripCodeFence(text)
	if payload == "" {
		return nil, domain.ExtractionParseError("AI response is empty", nil)
	}
	if payload[0] != '{' {
		return nil, domain.ExtractionParseError("AI response is not a JSON object", nil)
	}

	var w wireInvoice
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		return nil, domain.ExtractionParseError("AI response is not valid invoice JSON", err)
	}

	items, err := w.lineItems()
	if err != nil {
		return nil, domain.ExtractionParseError("line_items has an invalid shape", err)
	}

	return &domain.ExtractedInvoice{
		InvoiceNumber:   w.InvoiceNumber.v,
		InvoiceDate:     normalizeDate(w.InvoiceDate.v),
		VendorName:      w.VendorName.v,
		VendorAddress:   w.VendorAddress.v,
		CustomerName:    w.CustomerName.v,
		CustomerAddress: w.CustomerAddress.v,
		Subtotal:        w.Subtotal.v,
		Tax:             w.Tax.v,
		TotalAmount:     w.TotalAmount.v,
		Currency:        w.Currency.v,
		LineItems:       items,
	}, nil
}

type wireInvoice struct {
	InvoiceNumber   optString       `json:"invoice_number"`
	InvoiceDate     optString       `json:"invoice_date"`
	VendorName      optString       `json:"vendor_name"`
	VendorAddress   optString       `json:"vendor_address"`
	CustomerName    optString       `json:"customer_name"`
	CustomerAddress optString       `json:"customer_address"`
	Subtotal        optNumber       `json:"subtotal"`
	Tax             optNumber       `json:"tax"`
	TotalAmount     optNumber       `json:"total_amount"`
	Currency        optString       `json:"currency"`
	LineItems       json.RawMessage `json:"line_items"`
}

type wireLineItem struct {
	Description optString `json:"description"`
	Quantity    optNumber `json:"quantity"`
	UnitPrice   optNumber `json:"unit_price"`
	Amount      optNumber `json:"amount"`
}

func (w *wireInvoice) lineItems() ([]domain.LineItem, error) {
	raw := bytes.TrimSpace(w.LineItems)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []domain.LineItem{}, nil
	}
	if raw[0] != '[' {
		return nil, errors.New("expected an array")
	}

	var wire []wireLineItem
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}

	items := make([]domain.LineItem, 0, len(wire))
	for _, li := range wire {
		items = append(items, domain.LineItem{
			Description: li.Description.v,
			Quantity:    li.Quantity.v,
			UnitPrice:   li.UnitPrice.v,
			Amount:      li.Amount.v,
		})
	}
	return items, nil
}

// optString accepts a JSON string, number or null. Blank strings and the
// literal "null" are treated as absent.
type optString struct {
	v *string
}

func (s *optString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		return nil
	case len(b) > 0 && b[0] == '"':
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		str = strings.TrimSpace(str)
		if str == "" || strings.EqualFold(str, "null") {
			return nil
		}
		s.v = &str
		return nil
	case len(b) > 0 && (b[0] == '-' || (b[0] >= '0' && b[0] <= '9')):
		str := string(b)
		s.v = &str
		return nil
	default:
		return fmt.Errorf("expected string, got %s", b)
	}
}

// optNumber accepts a JSON number, a numeric string such as "1,200.50" or
// "$99", or null. Strings that are not numbers are treated as absent.
type optNumber struct {
	v *float64
}

var numberNoise = strings.NewReplacer(",", "", "$", "", "€", "", "£", "", " ", "")

func (n *optNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		return nil
	case len(b) > 0 && b[0] == '"':
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		str = strings.TrimSpace(str)
		if decimalComma(str) {
			return nil
		}
		f, err := strconv.ParseFloat(numberNoise.Replace(str), 64)
		if err != nil {
			return nil
		}
		n.v = &f
		return nil
	default:
		var f float64
		if err := json.Unmarshal(b, &f); err != nil {
			return fmt.Errorf("expected number, got %s", b)
		}
		n.v = &f
		return nil
	}
}

// decimalComma reports whether s groups thousands with dots and marks the
// decimal with a comma, as in "1.200,50". Such amounts are ambiguous and dropped.
func decimalComma(s string) bool {
	dot := strings.Index(s, ".")
	return dot >= 0 && strings.LastIndex(s, ",") > dot
}

// normalizeDate keeps ISO calendar dates and drops anything else. A full
// RFC 3339 timestamp is cut down to its date.
func normalizeDate(s *string) *string {
	if s == nil {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, *s); err == nil {
		return s
	}
	if t, err := time.Parse(time.RFC3339, *s); err == nil {
		d := t.Format(time.DateOnly)
		return &d
	}
	return nil
}

package extraction

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opsarc/paperflow/internal/core/domain"
	portssvc "github.com/opsarc/paperflow/internal/core/ports/services"
)

// FieldExtractor reads invoice fields directly out of the document payload.
// It is deterministic: the same document always yields the same extraction,
// which keeps workflow runs reproducible. Deployments with an OCR or LLM
// backend swap in their own implementation of the same port.
type FieldExtractor struct{}

var _ portssvc.DocumentExtractorSvc = (*FieldExtractor)(nil)

// NewFieldExtractor creates the local document extractor.
func NewFieldExtractor() *FieldExtractor {
	return &FieldExtractor{}
}

// ExtractInvoice pulls the vendor, invoice number, amount and issue date from
// the document. The extraction's confidence is the value declared in the
// document when present, otherwise the share of core fields that were found.
func (e *FieldExtractor) ExtractInvoice(ctx context.Context, document map[string]any) (*domain.InvoiceExtraction, error) {
	if len(document) == 0 {
		return nil, fmt.Errorf("document payload is empty")
	}

	extraction := &domain.InvoiceExtraction{}
	consumed := map[string]bool{"confidence": true}
	found := 0

	if v, key, ok := stringField(document, "vendorName", "vendor"); ok {
		extraction.VendorName = v
		consumed[key] = true
		found++
	}
	if v, key, ok := stringField(document, "invoiceNumber", "invoice_number"); ok {
		extraction.InvoiceNumber = v
		consumed[key] = true
		found++
	}
	if v, key, ok := decimalField(document, "amount", "total"); ok {
		extraction.Amount = v
		consumed[key] = true
		found++
	}
	if v, key, ok := dateField(document, "issueDate", "issue_date", "date"); ok {
		extraction.IssueDate = &v
		consumed[key] = true
		found++
	}

	if declared, ok := document["confidence"].(float64); ok {
		extraction.Confidence = clamp01(declared)
	} else {
		extraction.Confidence = float64(found) / 4.0
	}

	// Everything the core fields did not claim rides along untouched.
	for key, value := range document {
		if consumed[key] {
			continue
		}
		if extraction.Fields == nil {
			extraction.Fields = map[string]any{}
		}
		extraction.Fields[key] = value
	}

	return extraction, nil
}

func stringField(document map[string]any, keys ...string) (string, string, bool) {
	for _, key := range keys {
		if v, ok := document[key].(string); ok && v != "" {
			return v, key, true
		}
	}
	return "", "", false
}

func decimalField(document map[string]any, keys ...string) (decimal.Decimal, string, bool) {
	for _, key := range keys {
		switch n := document[key].(type) {
		case string:
			if d, err := decimal.NewFromString(n); err == nil {
				return d, key, true
			}
		case float64:
			return decimal.NewFromFloat(n), key, true
		case int:
			return decimal.NewFromInt(int64(n)), key, true
		case decimal.Decimal:
			return n, key, true
		}
	}
	return decimal.Zero, "", false
}

func dateField(document map[string]any, keys ...string) (time.Time, string, bool) {
	for _, key := range keys {
		v, ok := document[key].(string)
		if !ok {
			continue
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t.UTC(), key, true
		}
		if t, err := time.Parse("2006-01-02", v); err == nil {
			return t.UTC(), key, true
		}
	}
	return time.Time{}, "", false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
